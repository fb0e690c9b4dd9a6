package core_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

func TestBuild_HigherPriorityWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	modX := newMod(t, fs, "ModX", "a.mdl")
	modY := newMod(t, fs, "ModY", "a.mdl", "b.mdl")

	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{
		enabled(modY, 3),
		enabled(modX, 5),
	})
	require.NoError(t, err)

	target, ok := res.Lookup(gp("a.mdl"))
	require.True(t, ok)
	assert.Equal(t, domain.FileTarget(modPath(modX, "files/a.mdl")), target)

	target, ok = res.Lookup(gp("b.mdl"))
	require.True(t, ok)
	assert.Equal(t, domain.FileTarget(modPath(modY, "files/b.mdl")), target)

	assert.Equal(t, []domain.ConflictRecord{
		{Mod: "ModX", Other: "ModY", Path: gp("a.mdl"), Solved: true},
	}, res.Conflicts)
	assert.Equal(t, []string{"ModX", "ModY"}, res.Mods)

	owner, ok := res.Map.Owner(gp("a.mdl"))
	require.True(t, ok)
	assert.Equal(t, "ModX", owner)
}

func TestBuild_EqualPriorityConflictsBothWays(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := newMod(t, fs, "a", "x.tex")
	b := newMod(t, fs, "b", "x.tex")

	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{enabled(b, 0), enabled(a, 0)})
	require.NoError(t, err)

	owner, _ := res.Map.Owner(gp("x.tex"))
	assert.Equal(t, "a", owner)
	assert.Equal(t, []domain.ConflictRecord{
		{Mod: "a", Other: "b", Path: gp("x.tex")},
		{Mod: "b", Other: "a", Path: gp("x.tex")},
	}, res.Conflicts)
	assert.Len(t, res.ConflictsFor("b"), 2)
	assert.Empty(t, res.ConflictsFor("c"))
}

func TestBuild_DisabledModsAreIgnored(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := newMod(t, fs, "a", "x.tex")
	b := newMod(t, fs, "b", "x.tex")

	off := enabled(a, 100)
	off.Settings.Enabled = false

	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{off, enabled(b, 0)})
	require.NoError(t, err)

	owner, _ := res.Map.Owner(gp("x.tex"))
	assert.Equal(t, "b", owner)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, []string{"b"}, res.Mods)
}

func TestBuild_IsDeterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := newMod(t, fs, "a", "1.tex", "2.tex", "3.tex")
	b := newMod(t, fs, "b", "2.tex", "3.tex", "4.tex")
	c := newMod(t, fs, "c", "3.tex", "4.tex", "5.tex")

	r := newTestResolver(fs, nil)
	first, err := r.Build(context.Background(), []core.ModEntry{enabled(a, 1), enabled(b, 1), enabled(c, 2)})
	require.NoError(t, err)
	second, err := r.Build(context.Background(), []core.ModEntry{enabled(c, 2), enabled(b, 1), enabled(a, 1)})
	require.NoError(t, err)

	assert.True(t, first.Map.Equal(second.Map))
	assert.Equal(t, first.Conflicts, second.Conflicts)
	assert.Equal(t, first.Mods, second.Mods)
}

func TestBuild_RaisingPriorityNeverLosesPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := newMod(t, fs, "a", "1.tex", "2.tex")
	b := newMod(t, fs, "b", "1.tex", "2.tex", "3.tex")

	r := newTestResolver(fs, nil)
	owned := func(res *core.Resolution, modID string) int {
		n := 0
		for _, p := range res.Map.Paths() {
			if owner, _ := res.Map.Owner(p); owner == modID {
				n++
			}
		}
		return n
	}

	prev := -1
	for _, prio := range []int{-5, 0, 5} {
		res, err := r.Build(context.Background(), []core.ModEntry{enabled(a, prio), enabled(b, 0)})
		require.NoError(t, err)
		n := owned(res, "a")
		assert.GreaterOrEqual(t, n, prev)
		prev = n
	}
	assert.Equal(t, 2, prev)
}

func TestBuild_MissingFilesDoNotClaim(t *testing.T) {
	fs := afero.NewMemMapFs()
	high := newMod(t, fs, "high", "x.tex")
	low := newMod(t, fs, "low", "x.tex")
	require.NoError(t, fs.Remove(modPath(high, "files/x.tex")))

	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{enabled(high, 10), enabled(low, 0)})
	require.NoError(t, err)

	owner, _ := res.Map.Owner(gp("x.tex"))
	assert.Equal(t, "low", owner)
	assert.Equal(t, []string{modPath(high, "files/x.tex")}, res.Missing)
	assert.Empty(t, res.Conflicts)
}

func TestBuild_FilteredPathsAreSkipped(t *testing.T) {
	fs := afero.NewMemMapFs()
	mod := newMod(t, fs, "m", "sound/a.scd", "chara/b.tex", "chara/c.atex")

	r := core.NewResolver(core.ResolverConfig{Fs: fs, Filter: core.PathFilter{ExcludedSuffixes: []string{".ATEX"}}})
	res, err := r.Build(context.Background(), []core.ModEntry{enabled(mod, 0)})
	require.NoError(t, err)
	assert.Equal(t, []domain.GamePath{gp("chara/b.tex")}, res.Map.Paths())

	r = core.NewResolver(core.ResolverConfig{Fs: fs, Filter: core.PathFilter{SoundStreaming: true}})
	res, err = r.Build(context.Background(), []core.ModEntry{enabled(mod, 0)})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Map.Len())
}

func TestBuild_BrokenModContributesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	broken := newMod(t, fs, "broken", "x.tex")
	broken.LoadErr = assert.AnError
	ok := newMod(t, fs, "ok", "x.tex")

	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{enabled(broken, 10), enabled(ok, 0)})
	require.NoError(t, err)

	owner, _ := res.Map.Owner(gp("x.tex"))
	assert.Equal(t, "ok", owner)
	assert.Empty(t, res.Conflicts)
}

func TestBuild_Swaps(t *testing.T) {
	fs := afero.NewMemMapFs()
	mod := newMod(t, fs, "m")
	mod.Default.Swaps = map[domain.GamePath]domain.GamePath{gp("chara/a.mdl"): gp("chara/b.mdl")}

	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{enabled(mod, 0)})
	require.NoError(t, err)

	target, ok := res.Lookup(gp("chara/a.mdl"))
	require.True(t, ok)
	assert.Equal(t, domain.TargetSwap, target.Kind)
	assert.Equal(t, gp("chara/b.mdl"), target.Swap)
	assert.Empty(t, res.Missing)
}

func TestResolvedMap_WalkPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	mod := newMod(t, fs, "m", "chara/b.tex", "chara/a.tex", "ui/c.tex")

	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{enabled(mod, 0)})
	require.NoError(t, err)

	var seen []string
	res.Map.WalkPrefix("chara/", func(p domain.GamePath, _ domain.ReplacementTarget) bool {
		seen = append(seen, p.String())
		return true
	})
	assert.Equal(t, []string{"chara/a.tex", "chara/b.tex"}, seen)

	seen = nil
	res.Map.WalkPrefix("", func(p domain.GamePath, _ domain.ReplacementTarget) bool {
		seen = append(seen, p.String())
		return false
	})
	assert.Len(t, seen, 1)
}

func TestBuild_Cancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	mod := newMod(t, fs, "m", "a.tex")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestResolver(fs, nil).Build(ctx, []core.ModEntry{enabled(mod, 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolution_NilIsEmpty(t *testing.T) {
	var res *core.Resolution
	_, ok := res.Lookup(gp("a.tex"))
	assert.False(t, ok)
	assert.Nil(t, res.ConflictsFor("a"))
}

func TestBuild_InternalOverrideIsNotAConflict(t *testing.T) {
	fs := afero.NewMemMapFs()
	mod := newMod(t, fs, "m")
	writeModFile(t, fs, mod, "low/b.tex", []byte("low"))
	writeModFile(t, fs, mod, "high/b.tex", []byte("high"))
	mod.Groups = []domain.OptionGroup{{
		Name: "Extras",
		Kind: domain.GroupMulti,
		Options: []domain.Option{
			{Name: "Low", Files: map[domain.GamePath]string{gp("chara/b.tex"): "low/b.tex"}},
			{Name: "High", Files: map[domain.GamePath]string{gp("chara/b.tex"): "high/b.tex"}},
		},
	}}

	entry := enabled(mod, 0)
	entry.Settings.Settings = []uint32{0b11}
	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{entry})
	require.NoError(t, err)

	target, ok := res.Lookup(gp("chara/b.tex"))
	require.True(t, ok)
	assert.Equal(t, domain.FileTarget(modPath(mod, "high/b.tex")), target)
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, res.Missing)
}

func TestBuild_SelectedOptionBeatsLowerPriorityMod(t *testing.T) {
	fs := afero.NewMemMapFs()
	modX := newMod(t, fs, "ModX")
	writeModFile(t, fs, modX, "opt0/a.mdl", []byte("a"))
	writeModFile(t, fs, modX, "opt1/b.mdl", []byte("b"))
	modX.Groups = []domain.OptionGroup{{
		Name: "Variant",
		Kind: domain.GroupSingle,
		Options: []domain.Option{
			{Name: "A", Files: map[domain.GamePath]string{gp("chara/a.mdl"): "opt0/a.mdl"}},
			{Name: "B", Files: map[domain.GamePath]string{gp("chara/b.mdl"): "opt1/b.mdl"}},
		},
	}}
	modY := newMod(t, fs, "ModY", "chara/b.mdl")

	x := enabled(modX, 10)
	x.Settings.Settings = []uint32{1}
	res, err := newTestResolver(fs, nil).Build(context.Background(), []core.ModEntry{enabled(modY, 5), x})
	require.NoError(t, err)

	_, ok := res.Lookup(gp("chara/a.mdl"))
	assert.False(t, ok, "unselected option contributes nothing")

	target, ok := res.Lookup(gp("chara/b.mdl"))
	require.True(t, ok)
	assert.Equal(t, domain.FileTarget(modPath(modX, "opt1/b.mdl")), target)
	assert.Equal(t, []domain.ConflictRecord{
		{Mod: "ModX", Other: "ModY", Path: gp("chara/b.mdl"), Solved: true},
	}, res.Conflicts)
}
