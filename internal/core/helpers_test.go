package core_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/domain"
	"github.com/xivdev/Penumbra-sub003/internal/meta"
)

const modsRoot = "/mods"

func gp(s string) domain.GamePath {
	return domain.MustGamePath(s)
}

// newMod builds a mod whose default option redirects each game path to a
// storage file of the same name, and writes those files to fs
func newMod(t *testing.T, fs afero.Fs, id string, paths ...string) *domain.Mod {
	t.Helper()
	mod := &domain.Mod{
		ID:      id,
		Name:    id,
		Dir:     filepath.Join(modsRoot, id),
		Default: domain.Option{Files: make(map[domain.GamePath]string)},
	}
	for _, p := range paths {
		rel := "files/" + p
		mod.Default.Files[gp(p)] = rel
		writeModFile(t, fs, mod, rel, []byte(id+":"+p))
	}
	return mod
}

func writeModFile(t *testing.T, fs afero.Fs, mod *domain.Mod, rel string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(mod.Dir, rel), data, 0644))
	mod.Files = append(mod.Files, domain.ModFile{Path: rel, Size: int64(len(data))})
}

func modPath(mod *domain.Mod, rel string) string {
	return filepath.Join(mod.Dir, filepath.FromSlash(rel))
}

func enabled(mod *domain.Mod, priority int) core.ModEntry {
	s := domain.DefaultModSettings(mod)
	s.Enabled = true
	s.Priority = priority
	return core.ModEntry{Mod: mod, Settings: s}
}

func newTestResolver(fs afero.Fs, store core.SynthStore) *core.Resolver {
	return core.NewResolver(core.ResolverConfig{Fs: fs, Store: store})
}

func setManip(setID uint16, slot meta.EquipSlot, entry uint64) meta.Manipulation {
	return meta.NewSet(meta.SetKey{SetID: setID, Slot: slot}, entry)
}

const eqpPath = "chara/xls/equipmentparameter/equipmentparameter.eqp"
