package namespace_test

import (
	"strings"
	"testing"

	"github.com/xivdev/Penumbra-sub003/internal/namespace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func childNames(t *testing.T, tree *namespace.Tree, id namespace.NodeID) []string {
	t.Helper()
	children, err := tree.Children(id)
	require.NoError(t, err)
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name
	}
	return names
}

// assertNoDuplicateSiblings walks the whole tree checking that sibling names are unique
func assertNoDuplicateSiblings(t *testing.T, tree *namespace.Tree) {
	t.Helper()
	seen := make(map[string]bool)
	tree.Walk(func(n namespace.NodeInfo, _ int) bool {
		key := strings.ToLower(n.Path)
		assert.False(t, seen[key], "duplicate node %s", n.Path)
		seen[key] = true
		return true
	})
}

func mustLeaf(t *testing.T, tree *namespace.Tree, parent namespace.NodeID, name, modID string) namespace.NodeID {
	t.Helper()
	id, err := tree.CreateLeaf(parent, name, modID)
	require.NoError(t, err)
	return id
}

func TestTree_ChildrenSortedCaseInsensitive(t *testing.T) {
	tree := namespace.New()
	mustLeaf(t, tree, namespace.Root, "beta", "b")
	mustLeaf(t, tree, namespace.Root, "Alpha", "a")
	_, err := tree.CreateFolder(namespace.Root, "zeta")
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha", "beta", "zeta"}, childNames(t, tree, namespace.Root))

	tree.SetSortMode(namespace.SortFoldersFirst)
	assert.Equal(t, []string{"zeta", "Alpha", "beta"}, childNames(t, tree, namespace.Root))
}

func TestTree_CreateFolderReturnsExisting(t *testing.T) {
	tree := namespace.New()
	a, err := tree.CreateFolder(namespace.Root, "Armor")
	require.NoError(t, err)
	b, err := tree.CreateFolder(namespace.Root, "armor")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	mustLeaf(t, tree, namespace.Root, "Hair", "hair")
	_, err = tree.CreateFolder(namespace.Root, "hair")
	assert.ErrorIs(t, err, namespace.ErrNameTaken)

	_, err = tree.CreateFolder(namespace.Root, "bad/name")
	assert.ErrorIs(t, err, namespace.ErrInvalidName)
}

func TestTree_CreateLeafUniquifiesNames(t *testing.T) {
	tree := namespace.New()
	mustLeaf(t, tree, namespace.Root, "Outfit", "m1")
	second := mustLeaf(t, tree, namespace.Root, "outfit", "m2")

	info, err := tree.Info(second)
	require.NoError(t, err)
	assert.Equal(t, "outfit (2)", info.Name)

	_, err = tree.CreateLeaf(namespace.Root, "Other", "m1")
	assert.ErrorIs(t, err, namespace.ErrDuplicateLeaf)
}

func TestTree_FindAndPath(t *testing.T) {
	tree := namespace.New()
	folder, err := tree.CreateAllFolders("Gear/Body/Tops")
	require.NoError(t, err)
	leaf := mustLeaf(t, tree, folder, "Shirt", "shirt")

	got, ok := tree.Find("gear/BODY/tops/shirt")
	require.True(t, ok)
	assert.Equal(t, leaf, got)

	path, err := tree.Path(leaf)
	require.NoError(t, err)
	assert.Equal(t, "Gear/Body/Tops/Shirt", path)

	_, ok = tree.Find("Gear/Missing")
	assert.False(t, ok)
	_, ok = tree.Find("Gear/Body/Tops/Shirt/below")
	assert.False(t, ok)
}

func TestTree_RenameNoOp(t *testing.T) {
	tree := namespace.New()
	folder, err := tree.CreateFolder(namespace.Root, "Gear")
	require.NoError(t, err)
	mustLeaf(t, tree, folder, "x", "x")

	require.NoError(t, tree.Rename(folder, "Gear"))
	assert.Equal(t, []string{"Gear"}, childNames(t, tree, namespace.Root))

	require.NoError(t, tree.Rename(folder, "GEAR"))
	assert.Equal(t, []string{"GEAR"}, childNames(t, tree, namespace.Root))
}

func TestTree_RenameFolderOntoSiblingMerges(t *testing.T) {
	tree := namespace.New()
	a, err := tree.CreateFolder(namespace.Root, "A")
	require.NoError(t, err)
	b, err := tree.CreateFolder(namespace.Root, "B")
	require.NoError(t, err)

	mustLeaf(t, tree, a, "one", "m1")
	mustLeaf(t, tree, a, "shared", "m2")
	mustLeaf(t, tree, b, "shared", "m3")
	sub, err := tree.CreateFolder(a, "Sub")
	require.NoError(t, err)
	mustLeaf(t, tree, sub, "deep", "m4")
	bsub, err := tree.CreateFolder(b, "sub")
	require.NoError(t, err)
	mustLeaf(t, tree, bsub, "other", "m5")

	require.NoError(t, tree.Rename(a, "b"))

	_, err = tree.Info(a)
	assert.ErrorIs(t, err, namespace.ErrDetached)
	_, ok := tree.Find("A")
	assert.False(t, ok)

	assert.Equal(t, []string{"B"}, childNames(t, tree, namespace.Root))
	assert.Equal(t, []string{"one", "shared", "shared (2)", "sub"}, childNames(t, tree, b))
	assert.Equal(t, []string{"deep", "other"}, childNames(t, tree, bsub))
	assertNoDuplicateSiblings(t, tree)

	paths := tree.Export()
	assert.Equal(t, "B/sub/deep", paths["m4"])
	assert.Len(t, paths, 5)
}

func TestTree_RenameLeafCollisionGetsSuffix(t *testing.T) {
	tree := namespace.New()
	mustLeaf(t, tree, namespace.Root, "Hat", "m1")
	other := mustLeaf(t, tree, namespace.Root, "Coat", "m2")

	require.NoError(t, tree.Rename(other, "hat"))
	assert.Equal(t, []string{"Hat", "hat (2)"}, childNames(t, tree, namespace.Root))
}

func TestTree_MoveRejectsCycles(t *testing.T) {
	tree := namespace.New()
	a, err := tree.CreateFolder(namespace.Root, "A")
	require.NoError(t, err)
	child, err := tree.CreateFolder(a, "Child")
	require.NoError(t, err)
	mustLeaf(t, tree, child, "leaf", "m1")

	assert.ErrorIs(t, tree.Move(a, a), namespace.ErrCycle)
	assert.ErrorIs(t, tree.Move(a, child), namespace.ErrCycle)
	assert.ErrorIs(t, tree.Merge(a, child), namespace.ErrCycle)

	// State unchanged
	path, err := tree.Path(child)
	require.NoError(t, err)
	assert.Equal(t, "A/Child", path)
}

func TestTree_MovePrunesEmptiedFolders(t *testing.T) {
	tree := namespace.New()
	deep, err := tree.CreateAllFolders("Old/Nested")
	require.NoError(t, err)
	leaf := mustLeaf(t, tree, deep, "mod", "m1")
	dest, err := tree.CreateFolder(namespace.Root, "New")
	require.NoError(t, err)

	require.NoError(t, tree.Move(leaf, dest))

	_, ok := tree.Find("Old")
	assert.False(t, ok)
	_, err = tree.Info(deep)
	assert.ErrorIs(t, err, namespace.ErrDetached)
	assert.Equal(t, []string{"New"}, childNames(t, tree, namespace.Root))

	// Already there
	require.NoError(t, tree.Move(leaf, dest))

	// Detached handles stay dead
	_, err = tree.CreateLeaf(deep, "again", "m2")
	assert.ErrorIs(t, err, namespace.ErrDetached)
}

func TestTree_MoveFolderOntoSameNameMerges(t *testing.T) {
	tree := namespace.New()
	src, err := tree.CreateAllFolders("X/Tops")
	require.NoError(t, err)
	mustLeaf(t, tree, src, "a", "m1")
	y, err := tree.CreateFolder(namespace.Root, "Y")
	require.NoError(t, err)
	dst, err := tree.CreateFolder(y, "tops")
	require.NoError(t, err)
	mustLeaf(t, tree, dst, "b", "m2")

	require.NoError(t, tree.Move(src, y))

	assert.Equal(t, []string{"Y"}, childNames(t, tree, namespace.Root))
	assert.Equal(t, []string{"a", "b"}, childNames(t, tree, dst))
	assertNoDuplicateSiblings(t, tree)
}

func TestTree_DeleteFolderKeepsMods(t *testing.T) {
	tree := namespace.New()
	folder, err := tree.CreateFolder(namespace.Root, "Folder")
	require.NoError(t, err)
	mustLeaf(t, tree, folder, "Folder", "m1")
	mustLeaf(t, tree, folder, "inner", "m2")

	require.NoError(t, tree.Delete(folder))

	assert.Equal(t, []string{"Folder", "inner"}, childNames(t, tree, namespace.Root))
	_, ok := tree.Leaf("m1")
	assert.True(t, ok)

	leaf, _ := tree.Leaf("m2")
	require.NoError(t, tree.Delete(leaf))
	_, ok = tree.Leaf("m2")
	assert.False(t, ok)

	assert.ErrorIs(t, tree.Delete(namespace.Root), namespace.ErrRoot)
}

func TestTree_ExportImportRoundTrip(t *testing.T) {
	tree := namespace.New()
	require.NoError(t, tree.Import(map[string]string{
		"m1": "Gear/Hats/Cap",
		"m2": "Gear/Hats/cap",
		"m3": "Hair/Long",
		"m4": "Loose",
	}))

	exported := tree.Export()
	assert.Equal(t, "Gear/Hats/Cap", exported["m1"])
	assert.Equal(t, "Gear/Hats/cap (2)", exported["m2"])

	again := namespace.New()
	require.NoError(t, again.Import(exported))
	assert.Equal(t, exported, again.Export())

	// Placing an existing mod moves it and prunes what it left behind
	_, err := again.Place("m3", "Gear/Hair")
	require.NoError(t, err)
	_, ok := again.Find("Hair")
	assert.False(t, ok)
	assert.Equal(t, "Gear/Hair", again.Export()["m3"])
}

func TestTree_RemoveMod(t *testing.T) {
	tree := namespace.New()
	_, err := tree.Place("m1", "Solo/mod")
	require.NoError(t, err)

	tree.RemoveMod("m1")
	tree.RemoveMod("unknown")

	assert.Zero(t, tree.Len())
}

func TestParseSortMode(t *testing.T) {
	mode, err := namespace.ParseSortMode("folders-first")
	require.NoError(t, err)
	assert.Equal(t, namespace.SortFoldersFirst, mode)

	mode, err = namespace.ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, namespace.SortLexicographic, mode)

	_, err = namespace.ParseSortMode("random")
	assert.Error(t, err)
}
