package domain

import (
	"strings"

	"github.com/xivdev/Penumbra-sub003/internal/meta"
)

// MaxMultiOptions is the width of a multi group's selection bitmask
const MaxMultiOptions = 32

// GroupKind determines how a group's setting value is read
type GroupKind int

const (
	GroupSingle GroupKind = iota // Setting is an option index
	GroupMulti                   // Setting is a bitmask of options
)

func (k GroupKind) String() string {
	switch k {
	case GroupSingle:
		return "single"
	case GroupMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// ModFile is a single file in a mod's storage directory
type ModFile struct {
	Path string // Relative path, forward slashes
	Size int64
}

// Option is one selectable unit of redirections and edits
type Option struct {
	Name          string
	Description   string
	Files         map[GamePath]string // Game path -> file path relative to the mod directory
	Swaps         map[GamePath]GamePath
	Manipulations []meta.Manipulation
}

// IsEmpty reports whether the option changes nothing
func (o *Option) IsEmpty() bool {
	return len(o.Files) == 0 && len(o.Swaps) == 0 && len(o.Manipulations) == 0
}

// OptionGroup is a user-configurable set of options
type OptionGroup struct {
	Name            string
	Description     string
	Kind            GroupKind
	DefaultSettings uint32
	Options         []Option
}

// Validate checks the group's structural invariants
func (g *OptionGroup) Validate() error {
	if g.Kind == GroupMulti && len(g.Options) > MaxMultiOptions {
		return ErrTooManyOptions
	}
	return nil
}

// Mod is a package of replacement files and metadata edits
type Mod struct {
	ID          string // Storage directory name, stable
	Name        string
	Author      string
	Version     string
	Description string
	Dir         string // Absolute storage directory
	Default     Option
	Groups      []OptionGroup
	Files       []ModFile // Storage inventory
	LoadErr     error     // Set when the mod's group data could not be read
}

// DisplayName returns the mod's name, falling back to its ID
func (m *Mod) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// GroupIndex returns the index of the named group, compared case-insensitively
func (m *Mod) GroupIndex(name string) (int, bool) {
	for i := range m.Groups {
		if strings.EqualFold(m.Groups[i].Name, name) {
			return i, true
		}
	}
	return -1, false
}
