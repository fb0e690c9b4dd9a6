package domain

// TargetKind says what a ReplacementTarget points at
type TargetKind uint8

const (
	TargetFile        TargetKind = iota // Concrete file inside a mod's storage
	TargetSwap                          // Another game path
	TargetSynthesized                   // Patched record table written by the resolver
)

func (k TargetKind) String() string {
	switch k {
	case TargetFile:
		return "file"
	case TargetSwap:
		return "swap"
	case TargetSynthesized:
		return "synthesized"
	default:
		return "unknown"
	}
}

// ReplacementTarget is what a game path resolves to.
// Two targets naming the same bytes through different routes are not equal.
type ReplacementTarget struct {
	Kind     TargetKind
	FullPath string   // Set for TargetFile and TargetSynthesized
	Swap     GamePath // Set for TargetSwap
}

// FileTarget redirects to a file on disk
func FileTarget(fullPath string) ReplacementTarget {
	return ReplacementTarget{Kind: TargetFile, FullPath: fullPath}
}

// SwapTarget redirects to another game path
func SwapTarget(to GamePath) ReplacementTarget {
	return ReplacementTarget{Kind: TargetSwap, Swap: to}
}

// SynthesizedTarget redirects to a generated file
func SynthesizedTarget(fullPath string) ReplacementTarget {
	return ReplacementTarget{Kind: TargetSynthesized, FullPath: fullPath}
}

// IsFile reports whether the target is backed by a file on disk
func (t ReplacementTarget) IsFile() bool {
	return t.Kind == TargetFile || t.Kind == TargetSynthesized
}

func (t ReplacementTarget) String() string {
	if t.Kind == TargetSwap {
		return "swap:" + t.Swap.String()
	}
	return t.FullPath
}
