package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Cache stores synthesized files under content-addressed names.
// Files are disposable and never written over source data.
type Cache struct {
	fs       afero.Fs
	basePath string
}

// New creates a cache rooted at basePath on fs
func New(fs afero.Fs, basePath string) *Cache {
	return &Cache{fs: fs, basePath: basePath}
}

// BasePath returns the cache root
func (c *Cache) BasePath() string {
	return c.basePath
}

// PathFor returns where content with the given extension is stored.
// Equal content always maps to the same path.
func (c *Cache) PathFor(content []byte, ext string) string {
	sum := sha256.Sum256(content)
	name := hex.EncodeToString(sum[:])
	return filepath.Join(c.basePath, name[:2], name+normalizeExt(ext))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return ""
	}
	return "." + ext
}

// Exists checks if a cached file is present
func (c *Cache) Exists(fullPath string) bool {
	info, err := c.fs.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// Store saves content to the cache and returns its path.
// Content already present is not rewritten.
func (c *Cache) Store(content []byte, ext string) (string, error) {
	fullPath := c.PathFor(content, ext)
	if info, err := c.fs.Stat(fullPath); err == nil && info.Size() == int64(len(content)) {
		return fullPath, nil
	}

	if err := c.fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	tmp := fullPath + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, content, 0644); err != nil {
		return "", fmt.Errorf("writing cached file: %w", err)
	}
	if err := c.fs.Rename(tmp, fullPath); err != nil {
		_ = c.fs.Remove(tmp)
		return "", fmt.Errorf("finalizing cached file: %w", err)
	}

	return fullPath, nil
}

// ListFiles returns the full paths of all cached files
func (c *Cache) ListFiles() ([]string, error) {
	var files []string
	err := afero.Walk(c.fs, c.basePath, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cached files: %w", err)
	}

	return files, nil
}

// Purge deletes every cached file not in keep and returns how many were removed
func (c *Cache) Purge(keep map[string]struct{}) (int, error) {
	files, err := c.ListFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, f := range files {
		if _, ok := keep[f]; ok {
			continue
		}
		if err := c.fs.Remove(f); err != nil {
			return removed, fmt.Errorf("deleting cached file %s: %w", path.Base(f), err)
		}
		removed++
	}
	return removed, nil
}

// Size returns the total size of cached files
func (c *Cache) Size() (int64, error) {
	var totalSize int64
	err := afero.Walk(c.fs, c.basePath, func(_ string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		if isNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("calculating cache size: %w", err)
	}

	return totalSize, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
