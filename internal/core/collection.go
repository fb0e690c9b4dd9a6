package core

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

// Collection is a named set of mod settings and its latest resolution.
//
// Readers use Current, Lookup, Conflicts and Missing without locking. Settings
// changes only mark the collection dirty; Refresh rebuilds on demand and swaps
// the new resolution in atomically.
type Collection struct {
	info     domain.CollectionInfo
	resolver *Resolver
	logger   zerolog.Logger

	settingsMu sync.RWMutex
	settings   map[string]domain.ModSettings

	dirty   atomic.Bool
	current atomic.Pointer[Resolution]

	buildMu    sync.Mutex
	generation uint64
}

// NewCollection creates an empty collection that needs a first build
func NewCollection(info domain.CollectionInfo, resolver *Resolver, logger zerolog.Logger) *Collection {
	c := &Collection{
		info:     info,
		resolver: resolver,
		logger:   logger.With().Str("collection", info.Name).Logger(),
		settings: make(map[string]domain.ModSettings),
	}
	c.dirty.Store(true)
	return c
}

// Info returns the collection's identity
func (c *Collection) Info() domain.CollectionInfo {
	return c.info
}

// Name returns the collection's display name
func (c *Collection) Name() string {
	return c.info.Name
}

// Settings returns a copy of the settings for a mod, or its defaults when none are stored
func (c *Collection) Settings(mod *domain.Mod) domain.ModSettings {
	c.settingsMu.RLock()
	s, ok := c.settings[mod.ID]
	c.settingsMu.RUnlock()
	if !ok {
		return domain.DefaultModSettings(mod)
	}
	s = s.Clone()
	s.Normalize(mod)
	return s
}

// SetSettings replaces the stored settings for a mod
func (c *Collection) SetSettings(modID string, s domain.ModSettings) {
	c.settingsMu.Lock()
	c.settings[modID] = s.Clone()
	c.settingsMu.Unlock()
	c.MarkDirty()
}

// Update applies fn to a copy of a mod's settings and stores the result if fn succeeds
func (c *Collection) Update(mod *domain.Mod, fn func(*domain.ModSettings) error) (domain.ModSettings, error) {
	c.settingsMu.Lock()
	defer c.settingsMu.Unlock()

	s, ok := c.settings[mod.ID]
	if ok {
		s = s.Clone()
		s.Normalize(mod)
	} else {
		s = domain.DefaultModSettings(mod)
	}
	if err := fn(&s); err != nil {
		return domain.ModSettings{}, err
	}
	c.settings[mod.ID] = s
	c.MarkDirty()
	return s.Clone(), nil
}

// Forget drops the stored settings for a mod
func (c *Collection) Forget(modID string) {
	c.settingsMu.Lock()
	_, ok := c.settings[modID]
	delete(c.settings, modID)
	c.settingsMu.Unlock()
	if ok {
		c.MarkDirty()
	}
}

// MarkDirty requests a rebuild on the next Refresh
func (c *Collection) MarkDirty() {
	c.dirty.Store(true)
}

// Dirty reports whether the current resolution is stale
func (c *Collection) Dirty() bool {
	return c.dirty.Load()
}

// Current returns the latest resolution, nil before the first build
func (c *Collection) Current() *Resolution {
	return c.current.Load()
}

// Lookup resolves a game path against the latest resolution
func (c *Collection) Lookup(p domain.GamePath) (domain.ReplacementTarget, bool) {
	return c.Current().Lookup(p)
}

// Conflicts returns the conflicts of the latest resolution
func (c *Collection) Conflicts() []domain.ConflictRecord {
	if res := c.Current(); res != nil {
		return res.Conflicts
	}
	return nil
}

// Missing returns the missing files of the latest resolution
func (c *Collection) Missing() []string {
	if res := c.Current(); res != nil {
		return res.Missing
	}
	return nil
}

// Refresh rebuilds the resolution from mods if the collection is dirty.
// A failed build leaves the previous resolution in place and the collection dirty.
func (c *Collection) Refresh(ctx context.Context, mods []*domain.Mod) (*Resolution, error) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	if !c.dirty.Load() {
		if res := c.current.Load(); res != nil {
			return res, nil
		}
	}

	// Changes arriving during the build set the flag again
	c.dirty.Store(false)

	res, err := c.resolver.Build(ctx, c.entries(mods))
	if err != nil {
		c.dirty.Store(true)
		return nil, err
	}

	c.generation++
	res.Generation = c.generation
	c.current.Store(res)

	c.logger.Info().
		Uint64("generation", res.Generation).
		Int("paths", res.Map.Len()).
		Int("conflicts", len(res.Conflicts)).
		Msg("Collection rebuilt")
	return res, nil
}

func (c *Collection) entries(mods []*domain.Mod) []ModEntry {
	sorted := append([]*domain.Mod(nil), mods...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	entries := make([]ModEntry, 0, len(sorted))
	for _, mod := range sorted {
		entries = append(entries, ModEntry{Mod: mod, Settings: c.Settings(mod)})
	}
	return entries
}
