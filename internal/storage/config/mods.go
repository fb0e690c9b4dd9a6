package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
	"github.com/xivdev/Penumbra-sub003/internal/meta"
)

const (
	modMetaFile     = "meta.yaml"
	defaultModFile  = "default_mod.yaml"
	groupFilePrefix = "group_"
)

// ModMetaConfig is the YAML representation of a mod's description
type ModMetaConfig struct {
	Name        string `yaml:"name"`
	Author      string `yaml:"author,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// OptionConfig is the YAML representation of an option
type OptionConfig struct {
	Name          string              `yaml:"name,omitempty"`
	Description   string              `yaml:"description,omitempty"`
	Files         map[string]string   `yaml:"files,omitempty"`
	Swaps         map[string]string   `yaml:"swaps,omitempty"`
	Manipulations []meta.Manipulation `yaml:"manipulations,omitempty"`
}

// GroupConfig is the YAML representation of an option group
type GroupConfig struct {
	Name            string         `yaml:"name"`
	Description     string         `yaml:"description,omitempty"`
	Type            string         `yaml:"type"`
	DefaultSettings uint32         `yaml:"default_settings"`
	Options         []OptionConfig `yaml:"options"`
}

// LoadMods reads every mod directory under modsDir. A missing directory holds no mods.
func LoadMods(fsys afero.Fs, modsDir string) ([]*domain.Mod, error) {
	entries, err := afero.ReadDir(fsys, modsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading mods dir: %w", err)
	}

	var mods []*domain.Mod
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		mod, err := LoadMod(fsys, filepath.Join(modsDir, e.Name()))
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}

	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	return mods, nil
}

// LoadMod reads one mod directory. Unreadable option data does not fail the load;
// it is recorded in the mod's LoadErr so the mod can be reported and skipped.
func LoadMod(fsys afero.Fs, dir string) (*domain.Mod, error) {
	files, err := inventory(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("listing mod %s: %w", filepath.Base(dir), err)
	}

	mod := &domain.Mod{
		ID:    filepath.Base(dir),
		Dir:   dir,
		Files: files,
	}
	mod.Name = mod.ID

	if err := loadModData(fsys, mod); err != nil {
		mod.LoadErr = err
		mod.Default = domain.Option{}
		mod.Groups = nil
	}
	return mod, nil
}

func inventory(fsys afero.Fs, dir string) ([]domain.ModFile, error) {
	var files []domain.ModFile
	err := afero.Walk(fsys, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, domain.ModFile{Path: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func loadModData(fsys afero.Fs, mod *domain.Mod) error {
	var metaCfg ModMetaConfig
	found, err := readYAML(fsys, filepath.Join(mod.Dir, modMetaFile), &metaCfg)
	if err != nil {
		return err
	}
	if found {
		if metaCfg.Name != "" {
			mod.Name = metaCfg.Name
		}
		mod.Author = metaCfg.Author
		mod.Version = metaCfg.Version
		mod.Description = metaCfg.Description
	}

	var defCfg OptionConfig
	if _, err := readYAML(fsys, filepath.Join(mod.Dir, defaultModFile), &defCfg); err != nil {
		return err
	}
	if mod.Default, err = defCfg.toOption(); err != nil {
		return fmt.Errorf("%s: %w", defaultModFile, err)
	}

	for _, name := range groupFiles(mod.Files) {
		var gc GroupConfig
		if _, err := readYAML(fsys, filepath.Join(mod.Dir, name), &gc); err != nil {
			return err
		}
		group, err := gc.toGroup()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		mod.Groups = append(mod.Groups, group)
	}
	return nil
}

// groupFiles returns the mod's group files in declaration order
func groupFiles(files []domain.ModFile) []string {
	var names []string
	for _, f := range files {
		lower := strings.ToLower(f.Path)
		if !strings.Contains(lower, "/") && strings.HasPrefix(lower, groupFilePrefix) && strings.HasSuffix(lower, ".yaml") {
			names = append(names, f.Path)
		}
	}
	sort.Strings(names)
	return names
}

func readYAML(fsys afero.Fs, p string, out any) (bool, error) {
	data, err := afero.ReadFile(fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", filepath.Base(p), err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("parsing %s: %w", filepath.Base(p), err)
	}
	return true, nil
}

func (c OptionConfig) toOption() (domain.Option, error) {
	opt := domain.Option{
		Name:          c.Name,
		Description:   c.Description,
		Manipulations: c.Manipulations,
	}

	if len(c.Files) > 0 {
		opt.Files = make(map[domain.GamePath]string, len(c.Files))
		for gp, rel := range c.Files {
			p, err := domain.NewGamePath(gp)
			if err != nil {
				return domain.Option{}, err
			}
			clean, err := cleanRelPath(rel)
			if err != nil {
				return domain.Option{}, err
			}
			if _, dup := opt.Files[p]; dup {
				return domain.Option{}, fmt.Errorf("game path %s is redirected more than once", p)
			}
			opt.Files[p] = clean
		}
	}

	if len(c.Swaps) > 0 {
		opt.Swaps = make(map[domain.GamePath]domain.GamePath, len(c.Swaps))
		for from, to := range c.Swaps {
			f, err := domain.NewGamePath(from)
			if err != nil {
				return domain.Option{}, err
			}
			t, err := domain.NewGamePath(to)
			if err != nil {
				return domain.Option{}, err
			}
			if _, dup := opt.Swaps[f]; dup {
				return domain.Option{}, fmt.Errorf("game path %s is swapped more than once", f)
			}
			opt.Swaps[f] = t
		}
	}

	return opt, nil
}

// cleanRelPath rejects file references that leave the mod directory
func cleanRelPath(rel string) (string, error) {
	slashed := strings.ReplaceAll(strings.TrimSpace(rel), "\\", "/")
	clean := path.Clean(slashed)
	if slashed == "" || path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("file reference %q escapes the mod directory", rel)
	}
	return clean, nil
}

func (c GroupConfig) toGroup() (domain.OptionGroup, error) {
	g := domain.OptionGroup{
		Name:            c.Name,
		Description:     c.Description,
		DefaultSettings: c.DefaultSettings,
	}
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case "", "single":
		g.Kind = domain.GroupSingle
	case "multi":
		g.Kind = domain.GroupMulti
	default:
		return domain.OptionGroup{}, fmt.Errorf("unknown group type %q", c.Type)
	}
	if strings.TrimSpace(g.Name) == "" {
		return domain.OptionGroup{}, errors.New("group has no name")
	}

	g.Options = make([]domain.Option, len(c.Options))
	for i, oc := range c.Options {
		opt, err := oc.toOption()
		if err != nil {
			return domain.OptionGroup{}, fmt.Errorf("option %d: %w", i, err)
		}
		g.Options[i] = opt
	}
	return g, nil
}

func optionConfig(o *domain.Option) OptionConfig {
	c := OptionConfig{
		Name:          o.Name,
		Description:   o.Description,
		Manipulations: o.Manipulations,
	}
	if len(o.Files) > 0 {
		c.Files = make(map[string]string, len(o.Files))
		for gp, rel := range o.Files {
			c.Files[gp.String()] = rel
		}
	}
	if len(o.Swaps) > 0 {
		c.Swaps = make(map[string]string, len(o.Swaps))
		for from, to := range o.Swaps {
			c.Swaps[from.String()] = to.String()
		}
	}
	return c
}

// SaveDefaultOption writes the mod's default option back to its storage directory
func SaveDefaultOption(fsys afero.Fs, mod *domain.Mod) error {
	c := optionConfig(&mod.Default)
	c.Manipulations = append([]meta.Manipulation(nil), c.Manipulations...)
	meta.SortManipulations(c.Manipulations)

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling default option: %w", err)
	}
	if err := fsys.MkdirAll(mod.Dir, 0755); err != nil {
		return fmt.Errorf("creating mod dir: %w", err)
	}
	if err := afero.WriteFile(fsys, filepath.Join(mod.Dir, defaultModFile), data, 0644); err != nil {
		return fmt.Errorf("writing default option: %w", err)
	}
	return nil
}
