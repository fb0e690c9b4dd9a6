package core

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

// TableSource reads the authoritative bytes of a record table.
// A table that does not exist returns an error matching fs.ErrNotExist.
type TableSource interface {
	ReadTable(p domain.GamePath) ([]byte, error)
}

// GameData reads unmodified game files from an extracted data directory
type GameData struct {
	fs   afero.Fs
	root string
}

// NewGameData creates a table source rooted at dir. An empty dir has no tables.
func NewGameData(fs afero.Fs, dir string) *GameData {
	return &GameData{fs: fs, root: dir}
}

// ReadTable implements TableSource
func (g *GameData) ReadTable(p domain.GamePath) ([]byte, error) {
	if g == nil || g.root == "" {
		return nil, &fs.PathError{Op: "read", Path: p.String(), Err: fs.ErrNotExist}
	}
	return afero.ReadFile(g.fs, filepath.Join(g.root, filepath.FromSlash(p.String())))
}
