package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xivdev/Penumbra-sub003/internal/domain"

	"gopkg.in/yaml.v3"
)

// DefaultCollection is the collection used when none is named
const DefaultCollection = "Default"

// Config holds global application settings
type Config struct {
	ModsDir           string   `yaml:"mods_dir"`
	GameDataDir       string   `yaml:"game_data_dir,omitempty"`
	DefaultCollection string   `yaml:"default_collection"`
	SoundStreaming    bool     `yaml:"sound_streaming"`
	ExcludedSuffixes  []string `yaml:"excluded_suffixes,omitempty"`
	LogFile           string   `yaml:"log_file,omitempty"`
	SortMode          string   `yaml:"sort_mode,omitempty"`
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg := &Config{
		ModsDir:           filepath.Join(configDir, "mods"),
		DefaultCollection: DefaultCollection,
	}

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // Return defaults
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	var err error
	if c.ModsDir, err = ExpandPath(c.ModsDir); err != nil {
		return err
	}
	if c.GameDataDir, err = ExpandPath(c.GameDataDir); err != nil {
		return err
	}
	if c.LogFile, err = ExpandPath(c.LogFile); err != nil {
		return err
	}
	if strings.TrimSpace(c.ModsDir) == "" {
		return fmt.Errorf("%w: mods_dir is empty", domain.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DefaultCollection) == "" {
		c.DefaultCollection = DefaultCollection
	}
	for i, s := range c.ExcludedSuffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return fmt.Errorf("%w: empty excluded suffix", domain.ErrInvalidConfig)
		}
		c.ExcludedSuffixes[i] = s
	}
	return nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
