package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
	"github.com/xivdev/Penumbra-sub003/internal/logging"
	"github.com/xivdev/Penumbra-sub003/internal/meta"
	"github.com/xivdev/Penumbra-sub003/internal/namespace"
	"github.com/xivdev/Penumbra-sub003/internal/storage/cache"
	"github.com/xivdev/Penumbra-sub003/internal/storage/config"
	"github.com/xivdev/Penumbra-sub003/internal/storage/db"
)

// ServiceConfig holds configuration for the core service
type ServiceConfig struct {
	ConfigDir string          // Directory for configuration files
	DataDir   string          // Directory for database and persistent data
	CacheDir  string          // Directory for synthesized tables; defaults to DataDir/cache
	Fs        afero.Fs        // Mod storage, game data and cache; defaults to the OS filesystem
	Logger    *zerolog.Logger // Defaults to the global logger
}

// Service is the main orchestrator for mod resolution operations
type Service struct {
	config   *config.Config
	db       *db.DB
	cache    *cache.Cache
	fs       afero.Fs
	resolver *Resolver
	tasks    *TaskQueue
	tree     *namespace.Tree
	logger   zerolog.Logger

	mu          sync.RWMutex
	mods        map[string]*domain.Mod
	collections map[string]*Collection // Keyed by lower-case name
	placements  map[string]string      // Persisted folder paths by mod ID

	configDir string
	dataDir   string
	cacheDir  string
}

// NewService creates a new core service instance and loads the mod storage
func NewService(cfg ServiceConfig) (*Service, error) {
	// Load configuration
	appConfig, err := config.Load(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.GetLogger("service")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(cfg.DataDir, "cache")
	}

	order, err := config.LoadSortOrder(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading sort order: %w", err)
	}
	tree := namespace.New()
	mode, err := namespace.ParseSortMode(firstNonEmpty(order.Mode, appConfig.SortMode))
	if err != nil {
		logger.Warn().Err(err).Msg("Falling back to lexicographic sorting")
	}
	tree.SetSortMode(mode)

	// Open database
	database, err := db.New(filepath.Join(cfg.DataDir, "pmr.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := cache.New(fs, cacheDir)
	resolverLogger := logger.With().Str("component", "resolver").Logger()
	resolver := NewResolver(ResolverConfig{
		Fs: fs,
		Filter: PathFilter{
			SoundStreaming:   appConfig.SoundStreaming,
			ExcludedSuffixes: appConfig.ExcludedSuffixes,
		},
		Tables: NewGameData(fs, appConfig.GameDataDir),
		Store:  store,
		Logger: &resolverLogger,
	})

	s := &Service{
		config:      appConfig,
		db:          database,
		cache:       store,
		fs:          fs,
		resolver:    resolver,
		tasks:       NewTaskQueue(),
		tree:        tree,
		logger:      logger,
		mods:        make(map[string]*domain.Mod),
		collections: make(map[string]*Collection),
		placements:  order.Mods,
		configDir:   cfg.ConfigDir,
		dataDir:     cfg.DataDir,
		cacheDir:    cacheDir,
	}

	if err := s.LoadMods(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close stops background work and releases resources held by the service
func (s *Service) Close() error {
	s.tasks.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Config returns the application configuration
func (s *Service) Config() *config.Config {
	return s.config
}

// ConfigDir returns the configuration directory
func (s *Service) ConfigDir() string {
	return s.configDir
}

// LoadMods rescans the mod storage directory. Loaded collections are dropped
// and reload their settings against the new mod set on next use.
func (s *Service) LoadMods() error {
	done := logging.LogOperationStart(s.logger, "load_mods")
	defer done()

	mods, err := config.LoadMods(s.fs, s.config.ModsDir)
	if err != nil {
		return fmt.Errorf("loading mods: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mods = make(map[string]*domain.Mod, len(mods))
	for _, mod := range mods {
		if mod.LoadErr != nil {
			s.logger.Warn().Err(mod.LoadErr).Str("mod", mod.ID).Msg("Mod data could not be read")
		}
		s.mods[mod.ID] = mod
	}
	s.collections = make(map[string]*Collection)
	s.syncNamespace()

	s.logger.Info().Int("mods", len(s.mods)).Msg("Mods loaded")
	return nil
}

// syncNamespace gives every loaded mod a node and drops nodes of removed mods
func (s *Service) syncNamespace() {
	for modID := range s.tree.Export() {
		if _, ok := s.mods[modID]; !ok {
			s.tree.RemoveMod(modID)
		}
	}
	for _, mod := range s.sortedMods() {
		if _, ok := s.tree.Leaf(mod.ID); ok {
			continue
		}
		path := s.placements[mod.ID]
		if path == "" {
			path = mod.DisplayName()
		}
		if _, err := s.tree.Place(mod.ID, path); err != nil {
			s.logger.Warn().Err(err).Str("mod", mod.ID).Str("path", path).Msg("Placing mod in folder tree")
			if _, err := s.tree.Place(mod.ID, mod.ID); err != nil {
				s.logger.Error().Err(err).Str("mod", mod.ID).Msg("Mod has no folder tree node")
			}
		}
	}
}

func (s *Service) sortedMods() []*domain.Mod {
	out := make([]*domain.Mod, 0, len(s.mods))
	for _, mod := range s.mods {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Mods returns every loaded mod ordered by ID
func (s *Service) Mods() []*domain.Mod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedMods()
}

// Mod returns a loaded mod by ID
func (s *Service) Mod(id string) (*domain.Mod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mod, ok := s.mods[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrModNotFound, id)
	}
	return mod, nil
}

// Collection returns a collection by name, loading its settings from the database.
// An empty name selects the default collection, which is created on first use.
func (s *Service) Collection(name string) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		name = s.config.DefaultCollection
	}
	key := strings.ToLower(name)

	s.mu.RLock()
	c, ok := s.collections[key]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[key]; ok {
		return c, nil
	}

	info, err := s.db.GetCollection(name)
	if errors.Is(err, domain.ErrCollectionNotFound) && strings.EqualFold(name, s.config.DefaultCollection) {
		info, err = s.createCollection(name)
	}
	if err != nil {
		return nil, err
	}

	records, err := s.db.GetModSettings(info.ID)
	if err != nil {
		return nil, fmt.Errorf("loading settings for %s: %w", info.Name, err)
	}

	c = NewCollection(*info, s.resolver, s.logger)
	for modID, rec := range records {
		mod, ok := s.mods[modID]
		if !ok {
			// Kept so the settings survive until the mod returns
			c.SetSettings(modID, domain.ModSettings{Enabled: rec.Enabled, Priority: rec.Priority})
			continue
		}
		c.SetSettings(modID, settingsFromRecord(mod, rec))
	}

	s.collections[key] = c
	return c, nil
}

// settingsFromRecord maps stored group values onto the mod's current groups by name.
// Values for groups the mod no longer has are dropped.
func settingsFromRecord(mod *domain.Mod, rec db.ModSettingsRecord) domain.ModSettings {
	s := domain.DefaultModSettings(mod)
	s.Enabled = rec.Enabled
	s.Priority = rec.Priority
	for name, value := range rec.Groups {
		if idx, ok := mod.GroupIndex(name); ok {
			s.Settings[idx] = value
		}
	}
	s.Normalize(mod)
	return s
}

func recordFromSettings(mod *domain.Mod, s domain.ModSettings) db.ModSettingsRecord {
	rec := db.ModSettingsRecord{
		ModID:    mod.ID,
		Enabled:  s.Enabled,
		Priority: s.Priority,
		Groups:   make(map[string]uint32, len(mod.Groups)),
	}
	for i := range mod.Groups {
		rec.Groups[mod.Groups[i].Name] = s.Setting(mod, i)
	}
	return rec
}

// CreateCollection adds an empty collection
func (s *Service) CreateCollection(name string) (*domain.CollectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCollection(name)
}

func (s *Service) createCollection(name string) (*domain.CollectionInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", domain.ErrInvalidConfig)
	}
	info := &domain.CollectionInfo{ID: uuid.NewString(), Name: name}
	if err := s.db.CreateCollection(info); err != nil {
		return nil, err
	}
	s.logger.Info().Str("collection", name).Str("id", info.ID).Msg("Collection created")
	return info, nil
}

// ListCollections returns all stored collections
func (s *Service) ListCollections() ([]domain.CollectionInfo, error) {
	return s.db.ListCollections()
}

// DeleteCollection removes a collection and its settings. The default collection cannot be deleted.
func (s *Service) DeleteCollection(name string) error {
	if strings.EqualFold(strings.TrimSpace(name), s.config.DefaultCollection) {
		return fmt.Errorf("%w: cannot delete the default collection", domain.ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(name); err != nil {
		return err
	}
	delete(s.collections, strings.ToLower(name))
	return nil
}

// updateSettings changes one mod's settings in a collection and persists the result
func (s *Service) updateSettings(collection, modID string, fn func(*domain.Mod, *domain.ModSettings) error) error {
	c, err := s.Collection(collection)
	if err != nil {
		return err
	}
	mod, err := s.Mod(modID)
	if err != nil {
		return err
	}

	settings, err := c.Update(mod, func(ms *domain.ModSettings) error { return fn(mod, ms) })
	if err != nil {
		return err
	}

	if err := s.db.SaveModSettings(c.Info().ID, recordFromSettings(mod, settings)); err != nil {
		return fmt.Errorf("saving settings for %s: %w", modID, err)
	}
	s.logger.Debug().
		Str("collection", c.Name()).
		Str("mod", modID).
		Bool("enabled", settings.Enabled).
		Int("priority", settings.Priority).
		Msg("Mod settings changed")
	return nil
}

// ResetModSettings deletes a mod's stored settings from a collection so it falls
// back to defaults. The mod does not need to be loaded, which lets settings of
// removed mods be cleaned up.
func (s *Service) ResetModSettings(collection, modID string) error {
	c, err := s.Collection(collection)
	if err != nil {
		return err
	}
	if err := s.db.DeleteModSettings(c.Info().ID, modID); err != nil {
		return fmt.Errorf("resetting %s: %w", modID, err)
	}
	c.Forget(modID)
	s.logger.Debug().Str("collection", c.Name()).Str("mod", modID).Msg("Mod settings reset")
	return nil
}

// SetModEnabled enables or disables a mod in a collection
func (s *Service) SetModEnabled(collection, modID string, enabled bool) error {
	return s.updateSettings(collection, modID, func(_ *domain.Mod, ms *domain.ModSettings) error {
		ms.Enabled = enabled
		return nil
	})
}

// SetModPriority changes a mod's priority in a collection
func (s *Service) SetModPriority(collection, modID string, priority int) error {
	return s.updateSettings(collection, modID, func(_ *domain.Mod, ms *domain.ModSettings) error {
		ms.Priority = priority
		return nil
	})
}

// SetGroupSetting stores the value of one option group of a mod in a collection
func (s *Service) SetGroupSetting(collection, modID, group string, value uint32) error {
	return s.updateSettings(collection, modID, func(mod *domain.Mod, ms *domain.ModSettings) error {
		return ms.SetGroup(mod, group, value)
	})
}

// Resolve returns the collection's resolution, rebuilding it first if settings or mods changed
func (s *Service) Resolve(ctx context.Context, collection string) (*Resolution, error) {
	c, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	return c.Refresh(ctx, s.Mods())
}

// Rebuild forces a new resolution of the collection
func (s *Service) Rebuild(ctx context.Context, collection string) (*Resolution, error) {
	c, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	c.MarkDirty()
	return c.Refresh(ctx, s.Mods())
}

// ScheduleRebuild resolves the collection in the background.
// A rebuild already scheduled for the same collection is cancelled.
func (s *Service) ScheduleRebuild(collection string) *Task {
	if strings.TrimSpace(collection) == "" {
		collection = s.config.DefaultCollection
	}
	return s.tasks.Submit("rebuild:"+strings.ToLower(collection), func(ctx context.Context) error {
		_, err := s.Resolve(ctx, collection)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Str("collection", collection).Msg("Background rebuild failed")
		}
		return err
	})
}

// Lookup resolves a raw game path in a collection
func (s *Service) Lookup(ctx context.Context, collection, path string) (domain.ReplacementTarget, bool, error) {
	gp, err := domain.NewGamePath(path)
	if err != nil {
		return domain.ReplacementTarget{}, false, err
	}
	res, err := s.Resolve(ctx, collection)
	if err != nil {
		return domain.ReplacementTarget{}, false, err
	}
	target, ok := res.Lookup(gp)
	return target, ok, nil
}

// Conflicts returns a collection's conflicts, limited to one mod when modID is set
func (s *Service) Conflicts(ctx context.Context, collection, modID string) ([]domain.ConflictRecord, error) {
	res, err := s.Resolve(ctx, collection)
	if err != nil {
		return nil, err
	}
	if modID == "" {
		return res.Conflicts, nil
	}
	return res.ConflictsFor(modID), nil
}

// Namespace returns the folder tree of loaded mods
func (s *Service) Namespace() *namespace.Tree {
	return s.tree
}

// SaveNamespace persists the folder tree
func (s *Service) SaveNamespace() error {
	order := &config.SortOrder{
		Mode: s.tree.SortMode().String(),
		Mods: s.tree.Export(),
	}
	if err := config.SaveSortOrder(s.configDir, order); err != nil {
		return err
	}

	s.mu.Lock()
	s.placements = order.Mods
	s.mu.Unlock()
	return nil
}

// ExportManipulations encodes a mod's default manipulations, or the collection's
// merged manipulations when modID is empty, as shareable text
func (s *Service) ExportManipulations(ctx context.Context, collection, modID string) (string, error) {
	if modID != "" {
		mod, err := s.Mod(modID)
		if err != nil {
			return "", err
		}
		return meta.EncodeSet(mod.Default.Manipulations)
	}

	res, err := s.Resolve(ctx, collection)
	if err != nil {
		return "", err
	}
	ms := make([]meta.Manipulation, len(res.Manipulations))
	for i, m := range res.Manipulations {
		ms[i] = m.Manipulation
	}
	return meta.EncodeSet(ms)
}

// ImportManipulations decodes shared text into a mod's default option, replacing
// entries with the same identifier, and returns how many were imported
func (s *Service) ImportManipulations(modID, text string) (int, error) {
	ms, err := meta.DecodeSet(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("decoding manipulations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mod, ok := s.mods[modID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrModNotFound, modID)
	}
	if mod.LoadErr != nil {
		return 0, fmt.Errorf("mod %s is not loaded cleanly: %w", modID, mod.LoadErr)
	}

	updated := *mod
	updated.Default.Manipulations = mergeManipulations(mod.Default.Manipulations, ms)
	if err := config.SaveDefaultOption(s.fs, &updated); err != nil {
		return 0, err
	}

	reloaded, err := config.LoadMod(s.fs, mod.Dir)
	if err != nil {
		return 0, fmt.Errorf("reloading %s: %w", modID, err)
	}
	s.mods[modID] = reloaded
	for _, c := range s.collections {
		c.MarkDirty()
	}

	s.logger.Info().Str("mod", modID).Int("count", len(ms)).Msg("Manipulations imported")
	return len(ms), nil
}

func mergeManipulations(existing, incoming []meta.Manipulation) []meta.Manipulation {
	byID := make(map[meta.Identifier]meta.Manipulation, len(existing)+len(incoming))
	for _, m := range existing {
		byID[m.ID] = m
	}
	for _, m := range incoming {
		byID[m.ID] = m
	}
	out := make([]meta.Manipulation, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	meta.SortManipulations(out)
	return out
}

// CleanCache deletes synthesized tables not referenced by any loaded collection
func (s *Service) CleanCache() (int, error) {
	keep := make(map[string]struct{})
	s.mu.RLock()
	for _, c := range s.collections {
		for _, t := range c.Current().synthesized() {
			keep[t.FullPath] = struct{}{}
		}
	}
	s.mu.RUnlock()

	removed, err := s.cache.Purge(keep)
	if err != nil {
		return removed, fmt.Errorf("cleaning cache: %w", err)
	}
	s.logger.Info().Int("removed", removed).Msg("Cache cleaned")
	return removed, nil
}

// CacheStats describes the synthesized table store
type CacheStats struct {
	Path       string
	Files      int
	Size       int64
	Referenced int // Tables used by loaded collections
	Missing    int // Referenced tables no longer on disk
}

// CacheStats reports on the synthesized table store
func (s *Service) CacheStats() (CacheStats, error) {
	files, err := s.cache.ListFiles()
	if err != nil {
		return CacheStats{}, err
	}
	size, err := s.cache.Size()
	if err != nil {
		return CacheStats{}, err
	}
	stats := CacheStats{Path: s.cache.BasePath(), Files: len(files), Size: size}

	seen := make(map[string]struct{})
	s.mu.RLock()
	for _, c := range s.collections {
		for _, t := range c.Current().synthesized() {
			if _, ok := seen[t.FullPath]; ok {
				continue
			}
			seen[t.FullPath] = struct{}{}
			stats.Referenced++
			if !s.cache.Exists(t.FullPath) {
				stats.Missing++
			}
		}
	}
	s.mu.RUnlock()
	return stats, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
