// Package namespace organizes mods into a user-defined folder hierarchy.
//
// Nodes live in an arena and are addressed by NodeID. A node's parent is an
// index into the arena, so the tree holds no reference cycles. Removed nodes
// stay in the arena as dead handles and are never reused.
package namespace

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrCycle         = errors.New("move would create a cycle")
	ErrDetached      = errors.New("node is detached")
	ErrNotFolder     = errors.New("node is not a folder")
	ErrInvalidName   = errors.New("invalid node name")
	ErrNotFound      = errors.New("node not found")
	ErrNameTaken     = errors.New("name is taken by a mod")
	ErrDuplicateLeaf = errors.New("mod already has a node")
	ErrRoot          = errors.New("operation not allowed on the root folder")
)

// NodeID is a stable handle to a node
type NodeID int32

// Root is the handle of the root folder
const Root NodeID = 0

// SortMode selects how siblings are ordered
type SortMode int

const (
	SortLexicographic SortMode = iota // Case-insensitive by name
	SortFoldersFirst                  // Folders before mods, then by name
)

func (m SortMode) String() string {
	if m == SortFoldersFirst {
		return "folders_first"
	}
	return "lexicographic"
}

// ParseSortMode converts a string to SortMode
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lexicographic":
		return SortLexicographic, nil
	case "folders_first", "folders-first":
		return SortFoldersFirst, nil
	default:
		return SortLexicographic, fmt.Errorf("unknown sort mode %q", s)
	}
}

type node struct {
	name     string
	folder   bool
	parent   NodeID
	children []NodeID
	modID    string
	alive    bool
}

// Tree is the folder hierarchy. It is safe for concurrent readers alongside one writer.
type Tree struct {
	mu     sync.RWMutex
	nodes  []node
	leaves map[string]NodeID
	mode   SortMode
}

// New creates a tree holding only the root folder
func New() *Tree {
	return &Tree{
		nodes:  []node{{folder: true, parent: -1, alive: true}},
		leaves: make(map[string]NodeID),
	}
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

func (t *Tree) get(id NodeID) (*node, error) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	n := &t.nodes[id]
	if !n.alive {
		return nil, fmt.Errorf("%w: %d", ErrDetached, id)
	}
	return n, nil
}

func (t *Tree) folder(id NodeID) (*node, error) {
	n, err := t.get(id)
	if err != nil {
		return nil, err
	}
	if !n.folder {
		return nil, fmt.Errorf("%w: %s", ErrNotFolder, t.path(id))
	}
	return n, nil
}

func (t *Tree) less(a, b NodeID) bool {
	na, nb := &t.nodes[a], &t.nodes[b]
	if t.mode == SortFoldersFirst && na.folder != nb.folder {
		return na.folder
	}
	la, lb := strings.ToLower(na.name), strings.ToLower(nb.name)
	if la != lb {
		return la < lb
	}
	return na.name < nb.name
}

func (t *Tree) insertChild(parent, id NodeID) {
	p := &t.nodes[parent]
	i := sort.Search(len(p.children), func(i int) bool { return t.less(id, p.children[i]) })
	p.children = append(p.children, 0)
	copy(p.children[i+1:], p.children[i:])
	p.children[i] = id
	t.nodes[id].parent = parent
}

func (t *Tree) removeChild(parent, id NodeID) {
	p := &t.nodes[parent]
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

// findChild returns the child of parent whose name equals name case-insensitively
func (t *Tree) findChild(parent NodeID, name string) (NodeID, bool) {
	for _, c := range t.nodes[parent].children {
		if strings.EqualFold(t.nodes[c].name, name) {
			return c, true
		}
	}
	return -1, false
}

// uniqueName returns name, or name with the first free " (n)" suffix under parent
func (t *Tree) uniqueName(parent NodeID, name string, self NodeID) string {
	if c, ok := t.findChild(parent, name); !ok || c == self {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", name, i)
		if c, ok := t.findChild(parent, candidate); !ok || c == self {
			return candidate
		}
	}
}

func (t *Tree) newNode(n node) NodeID {
	n.alive = true
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) isAncestor(ancestor, id NodeID) bool {
	for cur := id; cur >= 0; cur = t.nodes[cur].parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// detach removes a node from its parent and kills it with its whole subtree
func (t *Tree) detach(id NodeID) {
	n := &t.nodes[id]
	t.removeChild(n.parent, id)
	t.kill(id)
}

func (t *Tree) kill(id NodeID) {
	n := &t.nodes[id]
	for _, c := range n.children {
		t.kill(c)
	}
	if !n.folder {
		delete(t.leaves, n.modID)
	}
	n.alive = false
	n.children = nil
	n.parent = -1
}

// prune removes id and its ancestors while they are empty non-root folders
func (t *Tree) prune(id NodeID) {
	for id != Root && id >= 0 {
		n := &t.nodes[id]
		if !n.alive || !n.folder || len(n.children) > 0 {
			return
		}
		parent := n.parent
		t.detach(id)
		id = parent
	}
}

func (t *Tree) path(id NodeID) string {
	var parts []string
	for cur := id; cur > Root; cur = t.nodes[cur].parent {
		parts = append(parts, t.nodes[cur].name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// CreateFolder creates a folder under parent, or returns the existing folder with that name
func (t *Tree) CreateFolder(parent NodeID, name string) (NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createFolder(parent, name)
}

func (t *Tree) createFolder(parent NodeID, name string) (NodeID, error) {
	if _, err := t.folder(parent); err != nil {
		return -1, err
	}
	name, err := validName(name)
	if err != nil {
		return -1, err
	}
	if c, ok := t.findChild(parent, name); ok {
		if t.nodes[c].folder {
			return c, nil
		}
		return -1, fmt.Errorf("%w: %s", ErrNameTaken, t.path(c))
	}
	id := t.newNode(node{name: name, folder: true})
	t.insertChild(parent, id)
	return id, nil
}

// CreateAllFolders creates every missing folder along a slash-separated path and returns the last one
func (t *Tree) CreateAllFolders(path string) (NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createAllFolders(path)
}

func (t *Tree) createAllFolders(path string) (NodeID, error) {
	cur := Root
	for _, part := range splitPath(path) {
		next, err := t.createFolder(cur, part)
		if err != nil {
			return -1, err
		}
		cur = next
	}
	return cur, nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// CreateLeaf adds a node for a mod under parent. A taken name gets a numeric suffix.
func (t *Tree) CreateLeaf(parent NodeID, name, modID string) (NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createLeaf(parent, name, modID)
}

func (t *Tree) createLeaf(parent NodeID, name, modID string) (NodeID, error) {
	if _, err := t.folder(parent); err != nil {
		return -1, err
	}
	name, err := validName(name)
	if err != nil {
		return -1, err
	}
	if modID == "" {
		return -1, fmt.Errorf("%w: empty mod id", ErrInvalidName)
	}
	if existing, ok := t.leaves[modID]; ok {
		return -1, fmt.Errorf("%w: %s at %s", ErrDuplicateLeaf, modID, t.path(existing))
	}
	id := t.newNode(node{name: t.uniqueName(parent, name, -1), modID: modID})
	t.insertChild(parent, id)
	t.leaves[modID] = id
	return id, nil
}

// Find returns the node at a slash-separated path, matched case-insensitively
func (t *Tree) Find(path string) (NodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cur := Root
	for _, part := range splitPath(path) {
		if !t.nodes[cur].folder {
			return -1, false
		}
		next, ok := t.findChild(cur, part)
		if !ok {
			return -1, false
		}
		cur = next
	}
	return cur, true
}

// Leaf returns the node of a mod
func (t *Tree) Leaf(modID string) (NodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.leaves[modID]
	return id, ok
}

// Rename changes a node's name. Renaming a folder onto an existing sibling folder
// merges the two; any other collision gives the renamed node a numeric suffix.
func (t *Tree) Rename(id NodeID, newName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.get(id)
	if err != nil {
		return err
	}
	if id == Root {
		return ErrRoot
	}
	newName, err = validName(newName)
	if err != nil {
		return err
	}
	if n.name == newName {
		return nil
	}

	parent := n.parent
	if sibling, ok := t.findChild(parent, newName); ok && sibling != id {
		if n.folder && t.nodes[sibling].folder {
			return t.merge(id, sibling)
		}
		newName = t.uniqueName(parent, newName, id)
	}

	t.removeChild(parent, id)
	t.nodes[id].name = newName
	t.insertChild(parent, id)
	return nil
}

// Move reparents a node into target. Moving into itself or a descendant fails with ErrCycle.
// A same-named folder in target is merged with a moved folder; other collisions get a numeric suffix.
func (t *Tree) Move(id, target NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.get(id)
	if err != nil {
		return err
	}
	if id == Root {
		return ErrRoot
	}
	if _, err := t.folder(target); err != nil {
		return err
	}
	if n.parent == target {
		return nil
	}
	if t.isAncestor(id, target) {
		return fmt.Errorf("%w: %s into %s", ErrCycle, t.path(id), t.path(target))
	}
	return t.moveInto(id, target)
}

// moveInto reparents id under target, resolving name collisions
func (t *Tree) moveInto(id, target NodeID) error {
	n := &t.nodes[id]
	if existing, ok := t.findChild(target, n.name); ok {
		if n.folder && t.nodes[existing].folder {
			return t.merge(id, existing)
		}
		n.name = t.uniqueName(target, n.name, id)
	}

	oldParent := n.parent
	t.removeChild(oldParent, id)
	t.insertChild(target, id)
	t.prune(oldParent)
	return nil
}

// Merge moves all children of folder src into folder dst and removes src
func (t *Tree) Merge(src, dst NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.folder(src); err != nil {
		return err
	}
	if _, err := t.folder(dst); err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	if src == Root {
		return ErrRoot
	}
	if t.isAncestor(src, dst) {
		return fmt.Errorf("%w: %s into %s", ErrCycle, t.path(src), t.path(dst))
	}
	return t.merge(src, dst)
}

func (t *Tree) merge(src, dst NodeID) error {
	// Unlink src first so its own name never counts as a collision in dst
	parent := t.nodes[src].parent
	t.removeChild(parent, src)

	children := append([]NodeID(nil), t.nodes[src].children...)
	for _, c := range children {
		if err := t.moveInto(c, dst); err != nil {
			return err
		}
	}

	// Moving the last child may already have pruned src
	if t.nodes[src].alive {
		t.kill(src)
	}
	t.prune(parent)
	return nil
}

// Delete removes a node. A deleted folder's children move up into its parent first.
func (t *Tree) Delete(id NodeID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.get(id)
	if err != nil {
		return err
	}
	if id == Root {
		return ErrRoot
	}
	if n.folder && len(n.children) > 0 {
		return t.merge(id, n.parent)
	}
	parent := n.parent
	t.detach(id)
	t.prune(parent)
	return nil
}

// RemoveMod deletes the node of a mod if it has one
func (t *Tree) RemoveMod(modID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.leaves[modID]; ok {
		parent := t.nodes[id].parent
		t.detach(id)
		t.prune(parent)
	}
}

// NodeInfo describes one node
type NodeInfo struct {
	ID     NodeID
	Name   string
	Path   string
	Folder bool
	ModID  string
}

func (t *Tree) info(id NodeID) NodeInfo {
	n := &t.nodes[id]
	return NodeInfo{ID: id, Name: n.name, Path: t.path(id), Folder: n.folder, ModID: n.modID}
}

// Info returns a description of a node
func (t *Tree) Info(id NodeID) (NodeInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, err := t.get(id); err != nil {
		return NodeInfo{}, err
	}
	return t.info(id), nil
}

// Children returns the children of a folder in sort order
func (t *Tree) Children(id NodeID) ([]NodeInfo, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := t.folder(id)
	if err != nil {
		return nil, err
	}
	out := make([]NodeInfo, len(n.children))
	for i, c := range n.children {
		out[i] = t.info(c)
	}
	return out, nil
}

// Path returns a node's slash-separated path; the root's path is empty
func (t *Tree) Path(id NodeID) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, err := t.get(id); err != nil {
		return "", err
	}
	return t.path(id), nil
}

// Walk visits every live node depth-first in sort order, starting below the root
func (t *Tree) Walk(fn func(NodeInfo, int) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.walk(Root, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(NodeInfo, int) bool) bool {
	for _, c := range t.nodes[id].children {
		if !fn(t.info(c), depth) {
			return false
		}
		if t.nodes[c].folder && !t.walk(c, depth+1, fn) {
			return false
		}
	}
	return true
}

// SortMode returns the active comparer
func (t *Tree) SortMode() SortMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// SetSortMode changes the comparer and re-sorts every folder
func (t *Tree) SetSortMode(mode SortMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode == mode {
		return
	}
	t.mode = mode
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.alive && n.folder {
			sort.SliceStable(n.children, func(a, b int) bool { return t.less(n.children[a], n.children[b]) })
		}
	}
}

// Export returns every mod's full path in the tree
func (t *Tree) Export() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.leaves))
	for modID, id := range t.leaves {
		out[modID] = t.path(id)
	}
	return out
}

// Place puts a mod's node at a full path, creating folders as needed.
// An existing node for the mod is moved and renamed.
func (t *Tree) Place(modID, path string) (NodeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.place(modID, path)
}

func (t *Tree) place(modID, path string) (NodeID, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return -1, fmt.Errorf("%w: empty path for %s", ErrInvalidName, modID)
	}
	name, err := validName(parts[len(parts)-1])
	if err != nil {
		return -1, err
	}
	parent, err := t.createAllFolders(strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return -1, err
	}

	id, ok := t.leaves[modID]
	if !ok {
		return t.createLeaf(parent, name, modID)
	}

	n := &t.nodes[id]
	oldParent := n.parent
	t.removeChild(oldParent, id)
	n.name = t.uniqueName(parent, name, id)
	t.insertChild(parent, id)
	t.prune(oldParent)
	return id, nil
}

// Import places every mod of an exported path map, in path order
func (t *Tree) Import(paths map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	modIDs := make([]string, 0, len(paths))
	for modID := range paths {
		modIDs = append(modIDs, modID)
	}
	sort.Slice(modIDs, func(i, j int) bool {
		if paths[modIDs[i]] != paths[modIDs[j]] {
			return paths[modIDs[i]] < paths[modIDs[j]]
		}
		return modIDs[i] < modIDs[j]
	})

	var errs []error
	for _, modID := range modIDs {
		if _, err := t.place(modID, paths[modID]); err != nil {
			errs = append(errs, fmt.Errorf("placing %s: %w", modID, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live nodes below the root
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	t.walk(Root, 0, func(NodeInfo, int) bool { count++; return true })
	return count
}
