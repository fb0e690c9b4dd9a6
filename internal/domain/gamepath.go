package domain

import (
	"fmt"
	"path"
	"strings"
)

// MaxGamePathLength is the longest path the game's resource loader accepts
const MaxGamePathLength = 260

// GamePath is a normalized, lower-case, forward-slash resource path.
// The zero value is the empty path and is never a valid map key for resolution.
type GamePath struct {
	p string
}

// NewGamePath normalizes s and validates it.
// Backslashes become forward slashes, leading slashes are dropped and ASCII letters are lowered.
func NewGamePath(s string) (GamePath, error) {
	p := strings.TrimSpace(s)
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return GamePath{}, fmt.Errorf("%w: empty", ErrInvalidGamePath)
	}
	if len(p) > MaxGamePathLength {
		return GamePath{}, fmt.Errorf("%w: %d bytes", ErrGamePathTooLong, len(p))
	}

	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c < 0x20 || c == 0x7f || c >= 0x80:
			return GamePath{}, fmt.Errorf("%w: invalid character at %d in %q", ErrInvalidGamePath, i, s)
		case c == ':' || c == '*' || c == '?' || c == '"' || c == '<' || c == '>' || c == '|':
			return GamePath{}, fmt.Errorf("%w: invalid character %q in %q", ErrInvalidGamePath, c, s)
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	p = b.String()

	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return GamePath{}, fmt.Errorf("%w: bad segment in %q", ErrInvalidGamePath, s)
		}
	}

	return GamePath{p: p}, nil
}

// MustGamePath is NewGamePath for literals; it panics on invalid input.
func MustGamePath(s string) GamePath {
	gp, err := NewGamePath(s)
	if err != nil {
		panic(err)
	}
	return gp
}

// String returns the normalized path
func (g GamePath) String() string {
	return g.p
}

// IsEmpty reports whether g is the zero path
func (g GamePath) IsEmpty() bool {
	return g.p == ""
}

// Extension returns the lower-case extension including the dot, or ""
func (g GamePath) Extension() string {
	return path.Ext(g.p)
}

// HasSuffix reports whether the path ends with suffix, compared case-insensitively
func (g GamePath) HasSuffix(suffix string) bool {
	return strings.HasSuffix(g.p, strings.ToLower(suffix))
}

// Less orders game paths lexically
func (g GamePath) Less(o GamePath) bool {
	return g.p < o.p
}

// MarshalText implements encoding.TextMarshaler
func (g GamePath) MarshalText() ([]byte, error) {
	return []byte(g.p), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (g *GamePath) UnmarshalText(text []byte) error {
	gp, err := NewGamePath(string(text))
	if err != nil {
		return err
	}
	*g = gp
	return nil
}
