package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sortOrderFile = "sort_order.yaml"

// SortOrder is the persisted folder placement of every mod
type SortOrder struct {
	Mode string            `yaml:"mode,omitempty"`
	Mods map[string]string `yaml:"mods"` // Mod ID -> full path in the folder tree
}

// LoadSortOrder reads the folder placement file. A missing file yields an empty order.
func LoadSortOrder(configDir string) (*SortOrder, error) {
	order := &SortOrder{Mods: make(map[string]string)}

	data, err := os.ReadFile(filepath.Join(configDir, sortOrderFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return order, nil
		}
		return nil, fmt.Errorf("reading sort order: %w", err)
	}

	if err := yaml.Unmarshal(data, order); err != nil {
		return nil, fmt.Errorf("parsing sort order: %w", err)
	}
	if order.Mods == nil {
		order.Mods = make(map[string]string)
	}
	return order, nil
}

// SaveSortOrder writes the folder placement file
func SaveSortOrder(configDir string, order *SortOrder) error {
	data, err := yaml.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshaling sort order: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, sortOrderFile), data, 0644); err != nil {
		return fmt.Errorf("writing sort order: %w", err)
	}
	return nil
}
