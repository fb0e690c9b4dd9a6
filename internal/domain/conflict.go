package domain

import (
	"fmt"

	"github.com/xivdev/Penumbra-sub003/internal/meta"
)

// ConflictRecord notes that two enabled mods claimed the same path or manipulation.
// Mod owns the claim; Other lost it. Solved means Mod's priority is strictly higher.
type ConflictRecord struct {
	Mod          string
	Other        string
	Path         GamePath        // Zero for manipulation conflicts
	Manipulation meta.Identifier // Zero for path conflicts
	Solved       bool
}

// IsManipulation reports whether the conflict is keyed on a manipulation identifier
func (c ConflictRecord) IsManipulation() bool {
	return c.Path.IsEmpty()
}

// Key returns the contested path or identifier as text
func (c ConflictRecord) Key() string {
	if c.IsManipulation() {
		return c.Manipulation.String()
	}
	return c.Path.String()
}

func (c ConflictRecord) String() string {
	state := "unsolved"
	if c.Solved {
		state = "solved"
	}
	return fmt.Sprintf("%s vs %s on %s (%s)", c.Mod, c.Other, c.Key(), state)
}

// Less orders conflicts by owner, other, then key
func (c ConflictRecord) Less(o ConflictRecord) bool {
	if c.Mod != o.Mod {
		return c.Mod < o.Mod
	}
	if c.Other != o.Other {
		return c.Other < o.Other
	}
	if c.IsManipulation() != o.IsManipulation() {
		return !c.IsManipulation()
	}
	if c.IsManipulation() {
		return c.Manipulation.Less(o.Manipulation)
	}
	return c.Path.Less(o.Path)
}
