package core

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
	"github.com/xivdev/Penumbra-sub003/internal/meta"
)

// ModTriple is everything one mod contributes under one set of settings
type ModTriple struct {
	Files         map[domain.GamePath]string // Game path -> full file path
	Swaps         map[domain.GamePath]domain.GamePath
	Manipulations map[meta.Identifier]meta.Value
}

func newModTriple() ModTriple {
	return ModTriple{
		Files:         make(map[domain.GamePath]string),
		Swaps:         make(map[domain.GamePath]domain.GamePath),
		Manipulations: make(map[meta.Identifier]meta.Value),
	}
}

// IsEmpty reports whether the triple redirects or edits nothing
func (t ModTriple) IsEmpty() bool {
	return len(t.Files) == 0 && len(t.Swaps) == 0 && len(t.Manipulations) == 0
}

// claimed reports whether the path is already redirected by either a file or a swap
func (t ModTriple) claimed(p domain.GamePath) bool {
	if _, ok := t.Files[p]; ok {
		return true
	}
	_, ok := t.Swaps[p]
	return ok
}

func (t ModTriple) addOption(mod *domain.Mod, opt *domain.Option) {
	for gp, rel := range opt.Files {
		if !t.claimed(gp) {
			t.Files[gp] = modFilePath(mod, rel)
		}
	}
	for gp, to := range opt.Swaps {
		if !t.claimed(gp) {
			t.Swaps[gp] = to
		}
	}
	for _, m := range opt.Manipulations {
		if _, ok := t.Manipulations[m.ID]; !ok {
			t.Manipulations[m.ID] = m.Value
		}
	}
}

// ResolveOptions computes the files, swaps and manipulations a mod contributes
// under the given settings.
//
// Options are visited from highest precedence to lowest and the first claim on
// a path or identifier wins: later-declared groups before earlier ones, higher
// option indices before lower ones inside a multi group, then the default
// option, then storage files no option mentions. The result holds at most one
// entry per path and identifier, so a mod's own overrides never conflict with
// each other.
func ResolveOptions(mod *domain.Mod, settings domain.ModSettings) (ModTriple, error) {
	if mod.LoadErr != nil {
		return ModTriple{}, fmt.Errorf("mod %s: %w", mod.ID, mod.LoadErr)
	}
	for i := range mod.Groups {
		if err := mod.Groups[i].Validate(); err != nil {
			return ModTriple{}, fmt.Errorf("mod %s group %q: %w", mod.ID, mod.Groups[i].Name, err)
		}
	}

	triple := newModTriple()
	for gi := len(mod.Groups) - 1; gi >= 0; gi-- {
		g := &mod.Groups[gi]
		value := settings.Setting(mod, gi)
		switch g.Kind {
		case domain.GroupSingle:
			if int(value) < len(g.Options) {
				triple.addOption(mod, &g.Options[value])
			}
		case domain.GroupMulti:
			for oi := len(g.Options) - 1; oi >= 0; oi-- {
				if value&(uint32(1)<<oi) != 0 {
					triple.addOption(mod, &g.Options[oi])
				}
			}
		}
	}

	triple.addOption(mod, &mod.Default)
	addUnclaimedFiles(mod, triple)
	return triple, nil
}

// addUnclaimedFiles redirects every storage file that no option references to
// the game path equal to its relative path
func addUnclaimedFiles(mod *domain.Mod, triple ModTriple) {
	if len(mod.Files) == 0 {
		return
	}

	referenced := make(map[string]struct{})
	mark := func(opt *domain.Option) {
		for _, rel := range opt.Files {
			referenced[strings.ToLower(path.Clean(filepath.ToSlash(rel)))] = struct{}{}
		}
	}
	mark(&mod.Default)
	for gi := range mod.Groups {
		for oi := range mod.Groups[gi].Options {
			mark(&mod.Groups[gi].Options[oi])
		}
	}

	for _, f := range mod.Files {
		rel := path.Clean(filepath.ToSlash(f.Path))
		if IsMetadataFile(rel) {
			continue
		}
		if _, ok := referenced[strings.ToLower(rel)]; ok {
			continue
		}
		gp, err := domain.NewGamePath(rel)
		if err != nil || triple.claimed(gp) {
			continue
		}
		triple.Files[gp] = modFilePath(mod, rel)
	}
}

// IsMetadataFile reports whether a mod-relative path is one of the mod's own
// description files rather than an asset
func IsMetadataFile(rel string) bool {
	if strings.Contains(rel, "/") {
		return false
	}
	name := strings.ToLower(rel)
	switch {
	case name == "meta.yaml", name == "default_mod.yaml":
		return true
	case strings.HasPrefix(name, "group_") && strings.HasSuffix(name, ".yaml"):
		return true
	}
	return false
}

func modFilePath(mod *domain.Mod, rel string) string {
	return filepath.Join(mod.Dir, filepath.FromSlash(rel))
}
