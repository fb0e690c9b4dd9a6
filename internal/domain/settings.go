package domain

import "fmt"

// ModSettings is one collection's configuration of one mod.
// Collections own their settings; copy with Clone before sharing.
type ModSettings struct {
	Enabled  bool
	Priority int
	Settings []uint32 // One value per group, in declaration order
}

// DefaultModSettings returns disabled settings with every group at its default
func DefaultModSettings(mod *Mod) ModSettings {
	s := ModSettings{Settings: make([]uint32, len(mod.Groups))}
	for i := range mod.Groups {
		s.Settings[i] = mod.Groups[i].DefaultSettings
	}
	return s
}

// Clone returns a deep copy
func (s ModSettings) Clone() ModSettings {
	c := s
	if s.Settings != nil {
		c.Settings = make([]uint32, len(s.Settings))
		copy(c.Settings, s.Settings)
	}
	return c
}

// Setting returns the value for group i, or the group's default when unset
func (s ModSettings) Setting(mod *Mod, i int) uint32 {
	if i < len(s.Settings) {
		return s.Settings[i]
	}
	return mod.Groups[i].DefaultSettings
}

// Normalize resizes Settings to the mod's group count and drops bits beyond a multi group's options.
// Single values are left alone; out-of-range indices select nothing during resolution.
func (s *ModSettings) Normalize(mod *Mod) {
	fixed := make([]uint32, len(mod.Groups))
	for i := range mod.Groups {
		v := s.Setting(mod, i)
		g := &mod.Groups[i]
		if g.Kind == GroupMulti && len(g.Options) < MaxMultiOptions {
			v &= (uint32(1) << len(g.Options)) - 1
		}
		fixed[i] = v
	}
	s.Settings = fixed
}

// SetGroup stores a value for the named group after validating it against the group
func (s *ModSettings) SetGroup(mod *Mod, groupName string, value uint32) error {
	idx, ok := mod.GroupIndex(groupName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupName)
	}
	g := &mod.Groups[idx]
	switch g.Kind {
	case GroupSingle:
		if int(value) >= len(g.Options) {
			return fmt.Errorf("%w: option %d of %d in %s", ErrInvalidSetting, value, len(g.Options), g.Name)
		}
	case GroupMulti:
		if len(g.Options) < MaxMultiOptions && value>>len(g.Options) != 0 {
			return fmt.Errorf("%w: mask %#x exceeds %d options in %s", ErrInvalidSetting, value, len(g.Options), g.Name)
		}
	}
	s.Normalize(mod)
	s.Settings[idx] = value
	return nil
}
