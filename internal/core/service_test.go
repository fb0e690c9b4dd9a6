package core_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/domain"
	"github.com/xivdev/Penumbra-sub003/internal/meta"
)

type serviceEnv struct {
	fs        afero.Fs
	configDir string
	dataDir   string
}

func newServiceEnv(t *testing.T) *serviceEnv {
	return &serviceEnv{fs: afero.NewMemMapFs(), configDir: t.TempDir(), dataDir: t.TempDir()}
}

func (e *serviceEnv) modsDir() string {
	return filepath.Join(e.configDir, "mods")
}

func (e *serviceEnv) writeMod(t *testing.T, id string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(e.fs, filepath.Join(e.modsDir(), id, name), []byte(content), 0644))
	}
}

func (e *serviceEnv) open(t *testing.T) *core.Service {
	t.Helper()
	svc, err := core.NewService(core.ServiceConfig{
		ConfigDir: e.configDir,
		DataDir:   e.dataDir,
		Fs:        e.fs,
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func seedMods(t *testing.T, e *serviceEnv) {
	e.writeMod(t, "outfit", map[string]string{
		"meta.yaml": "name: Fancy Outfit\n",
		"default_mod.yaml": `
files:
  chara/body.mdl: files/body.mdl
manipulations:
  - type: set
    set_id: 1
    slot: body
    entry: 5
`,
		"group_001_color.yaml": `
name: Color
type: single
options:
  - name: Red
    files:
      chara/body.tex: files/red.tex
  - name: Blue
    files:
      chara/body.tex: files/blue.tex
`,
		"files/body.mdl": "mdl",
		"files/red.tex":  "red",
		"files/blue.tex": "blue",
	})
	e.writeMod(t, "rival", map[string]string{
		"chara/body.mdl": "rival mdl",
	})
}

func TestNewService(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)

	mods := svc.Mods()
	require.Len(t, mods, 2)
	assert.Equal(t, "outfit", mods[0].ID)
	assert.Equal(t, "Fancy Outfit", mods[0].Name)

	_, err := svc.Mod("nope")
	assert.ErrorIs(t, err, domain.ErrModNotFound)

	// The default collection exists after first use
	c, err := svc.Collection("")
	require.NoError(t, err)
	assert.Equal(t, "Default", c.Name())

	list, err := svc.ListCollections()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Default", list[0].Name)
}

func TestService_SettingsDriveResolution(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)
	ctx := context.Background()

	_, ok, err := svc.Lookup(ctx, "", "chara/body.mdl")
	require.NoError(t, err)
	assert.False(t, ok, "mods start disabled")

	require.NoError(t, svc.SetModEnabled("", "outfit", true))
	require.NoError(t, svc.SetModEnabled("", "rival", true))
	require.NoError(t, svc.SetModPriority("", "rival", 5))
	require.NoError(t, svc.SetGroupSetting("", "outfit", "color", 1))

	target, ok, err := svc.Lookup(ctx, "", "Chara\\Body.mdl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(e.modsDir(), "rival", "chara", "body.mdl"), target.FullPath)

	target, ok, err = svc.Lookup(ctx, "", "chara/body.tex")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(e.modsDir(), "outfit", "files", "blue.tex"), target.FullPath)

	conflicts, err := svc.Conflicts(ctx, "", "outfit")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "rival", conflicts[0].Mod)
	assert.True(t, conflicts[0].Solved)

	res, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	require.Len(t, res.Synthesized, 1)
	exists, err := afero.Exists(e.fs, res.Synthesized[0].FullPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestService_SettingsPersist(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)

	svc := e.open(t)
	require.NoError(t, svc.SetModEnabled("", "outfit", true))
	require.NoError(t, svc.SetModPriority("", "outfit", -2))
	require.NoError(t, svc.SetGroupSetting("", "outfit", "Color", 1))
	require.NoError(t, svc.Close())

	reopened := e.open(t)
	c, err := reopened.Collection("default")
	require.NoError(t, err)
	mod, err := reopened.Mod("outfit")
	require.NoError(t, err)

	s := c.Settings(mod)
	assert.True(t, s.Enabled)
	assert.Equal(t, -2, s.Priority)
	assert.Equal(t, []uint32{1}, s.Settings)
}

func TestService_InvalidSettings(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)

	assert.ErrorIs(t, svc.SetModEnabled("", "ghost", true), domain.ErrModNotFound)
	assert.ErrorIs(t, svc.SetGroupSetting("", "outfit", "Size", 0), domain.ErrGroupNotFound)
	assert.ErrorIs(t, svc.SetGroupSetting("", "outfit", "Color", 2), domain.ErrInvalidSetting)
	assert.ErrorIs(t, svc.SetModEnabled("Missing", "outfit", true), domain.ErrCollectionNotFound)
}

func TestService_Collections(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)

	info, err := svc.CreateCollection("Raid")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)

	_, err = svc.CreateCollection("raid")
	assert.ErrorIs(t, err, domain.ErrCollectionExists)
	_, err = svc.CreateCollection("  ")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	require.NoError(t, svc.SetModEnabled("Raid", "rival", true))
	_, ok, err := svc.Lookup(context.Background(), "Raid", "chara/body.mdl")
	require.NoError(t, err)
	assert.True(t, ok)

	// Collections do not share settings
	_, ok, err = svc.Lookup(context.Background(), "", "chara/body.mdl")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.DeleteCollection("Default"), domain.ErrInvalidConfig)
	require.NoError(t, svc.DeleteCollection("Raid"))
	_, err = svc.Collection("Raid")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestService_ScheduleRebuild(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)

	require.NoError(t, svc.SetModEnabled("", "rival", true))
	c, err := svc.Collection("")
	require.NoError(t, err)
	assert.True(t, c.Dirty())

	require.NoError(t, svc.ScheduleRebuild("").Wait())
	assert.False(t, c.Dirty())
	_, ok := c.Lookup(gp("chara/body.mdl"))
	assert.True(t, ok)
}

func TestService_Namespace(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)

	svc := e.open(t)
	tree := svc.Namespace()
	id, ok := tree.Find("Fancy Outfit")
	require.True(t, ok)

	folder, err := tree.CreateAllFolders("Gear/Body")
	require.NoError(t, err)
	require.NoError(t, tree.Move(id, folder))
	require.NoError(t, svc.SaveNamespace())
	require.NoError(t, svc.Close())

	reopened := e.open(t)
	assert.Equal(t, map[string]string{
		"outfit": "Gear/Body/Fancy Outfit",
		"rival":  "rival",
	}, reopened.Namespace().Export())
}

func TestService_ImportExportManipulations(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)

	text, err := svc.ExportManipulations(context.Background(), "", "outfit")
	require.NoError(t, err)

	n, err := svc.ImportManipulations("rival", text)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rival, err := svc.Mod("rival")
	require.NoError(t, err)
	assert.Equal(t, []meta.Manipulation{meta.NewSet(meta.SetKey{SetID: 1, Slot: meta.SlotBody}, 5)}, rival.Default.Manipulations)
	// The asset stays an implicit file
	triple, err := core.ResolveOptions(rival, domain.DefaultModSettings(rival))
	require.NoError(t, err)
	assert.Contains(t, triple.Files, gp("chara/body.mdl"))
	exists, err := afero.Exists(e.fs, filepath.Join(e.modsDir(), "rival", "default_mod.yaml"))
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = svc.ImportManipulations("rival", "not base64!")
	assert.Error(t, err)
	_, err = svc.ImportManipulations("ghost", text)
	assert.ErrorIs(t, err, domain.ErrModNotFound)
}

func TestService_CleanCache(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)

	require.NoError(t, svc.SetModEnabled("", "outfit", true))
	res, err := svc.Rebuild(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, res.Synthesized, 1)

	stray := filepath.Join(e.dataDir, "cache", "ff", "stray.eqp")
	require.NoError(t, afero.WriteFile(e.fs, stray, []byte("old"), 0644))

	removed, err := svc.CleanCache()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	kept, err := afero.Exists(e.fs, res.Synthesized[0].FullPath)
	require.NoError(t, err)
	assert.True(t, kept)
}

func TestService_ResetModSettings(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)

	require.NoError(t, svc.SetModEnabled("", "rival", true))
	require.NoError(t, svc.SetModPriority("", "rival", 7))
	_, ok, err := svc.Lookup(context.Background(), "", "chara/body.mdl")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.ResetModSettings("", "rival"))
	_, ok, err = svc.Lookup(context.Background(), "", "chara/body.mdl")
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := svc.Collection("")
	require.NoError(t, err)
	rival, err := svc.Mod("rival")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultModSettings(rival), c.Settings(rival))

	assert.ErrorIs(t, svc.ResetModSettings("", "rival"), domain.ErrModNotFound)
	assert.ErrorIs(t, svc.ResetModSettings("Missing", "rival"), domain.ErrCollectionNotFound)

	// The reset survives a reopen
	require.NoError(t, svc.Close())
	reopened := e.open(t)
	c, err = reopened.Collection("")
	require.NoError(t, err)
	assert.False(t, c.Settings(rival).Enabled)
}

func TestService_CacheStats(t *testing.T) {
	e := newServiceEnv(t)
	seedMods(t, e)
	svc := e.open(t)

	stats, err := svc.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.dataDir, "cache"), stats.Path)
	assert.Zero(t, stats.Files)

	require.NoError(t, svc.SetModEnabled("", "outfit", true))
	res, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, res.Synthesized, 1)

	stats, err = svc.CacheStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, int64(len(res.Synthesized[0].Bytes)), stats.Size)
	assert.Equal(t, 1, stats.Referenced)
	assert.Zero(t, stats.Missing)

	require.NoError(t, e.fs.Remove(res.Synthesized[0].FullPath))
	stats, err = svc.CacheStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Files)
	assert.Equal(t, 1, stats.Missing)
}
