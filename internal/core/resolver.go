package core

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

// ModEntry pairs a mod with one collection's settings for it
type ModEntry struct {
	Mod      *domain.Mod
	Settings domain.ModSettings
}

// Resolution is the complete output of one resolution pass
type Resolution struct {
	Map           *ResolvedMap
	Conflicts     []domain.ConflictRecord
	Missing       []string // Full paths of redirected files that do not exist
	Manipulations []MergedManipulation
	Synthesized   []SynthesizedTable
	Mods          []string // Enabled mod IDs in resolution order
	Generation    uint64
}

// Lookup returns the replacement for a game path
func (r *Resolution) Lookup(p domain.GamePath) (domain.ReplacementTarget, bool) {
	if r == nil {
		return domain.ReplacementTarget{}, false
	}
	return r.Map.Lookup(p)
}

func (r *Resolution) synthesized() []SynthesizedTable {
	if r == nil {
		return nil
	}
	return r.Synthesized
}

// ConflictsFor returns the conflicts a mod takes part in, as owner or loser
func (r *Resolution) ConflictsFor(modID string) []domain.ConflictRecord {
	if r == nil {
		return nil
	}
	var out []domain.ConflictRecord
	for _, c := range r.Conflicts {
		if c.Mod == modID || c.Other == modID {
			out = append(out, c)
		}
	}
	return out
}

// ResolverConfig holds the collaborators of a Resolver
type ResolverConfig struct {
	Fs         afero.Fs // Mod storage; defaults to the OS filesystem
	Filter     PathFilter
	Tables     TableSource // Unmodified record tables; defaults to none
	Store      SynthStore  // Required when any mod carries manipulations
	Logger     *zerolog.Logger
	FlushLimit int // Parallel synthesized writes; defaults to 4
}

// Resolver turns an ordered mod collection into a Resolution
type Resolver struct {
	fs         afero.Fs
	filter     PathFilter
	tables     TableSource
	store      SynthStore
	logger     zerolog.Logger
	flushLimit int
}

// NewResolver creates a resolver
func NewResolver(cfg ResolverConfig) *Resolver {
	r := &Resolver{
		fs:         cfg.Fs,
		filter:     cfg.Filter,
		tables:     cfg.Tables,
		store:      cfg.Store,
		logger:     zerolog.Nop(),
		flushLimit: cfg.FlushLimit,
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.tables == nil {
		r.tables = NewGameData(r.fs, "")
	}
	if r.store == nil {
		r.store = discardStore{}
	}
	if cfg.Logger != nil {
		r.logger = *cfg.Logger
	}
	if r.flushLimit <= 0 {
		r.flushLimit = 4
	}
	return r
}

// Filter returns the path filter in use
func (r *Resolver) Filter() PathFilter {
	return r.filter
}

// SortEntries keeps enabled entries and orders them by priority descending, then mod ID
func SortEntries(entries []ModEntry) []ModEntry {
	active := make([]ModEntry, 0, len(entries))
	for _, e := range entries {
		if e.Mod != nil && e.Settings.Enabled {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Settings.Priority != active[j].Settings.Priority {
			return active[i].Settings.Priority > active[j].Settings.Priority
		}
		return active[i].Mod.ID < active[j].Mod.ID
	})
	return active
}

// Build runs one full resolution pass. The only error is context cancellation;
// broken mods and missing files are reported in the result.
func (r *Resolver) Build(ctx context.Context, entries []ModEntry) (*Resolution, error) {
	active := SortEntries(entries)
	b := &mapBuilder{
		fs:      r.fs,
		filter:  r.filter,
		entries: make(map[domain.GamePath]*mapEntry),
		missing: make(map[string]struct{}),
	}

	triples := make([]ModTriple, len(active))
	mods := make([]string, len(active))
	for i, e := range active {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mods[i] = e.Mod.ID

		t, err := ResolveOptions(e.Mod, e.Settings)
		if err != nil {
			r.logger.Warn().Err(err).Str("mod", e.Mod.ID).Msg("Mod contributes nothing this pass")
			t = newModTriple()
		}
		triples[i] = t
		b.claimTriple(i, e, t)
	}

	merged, mconflicts := Merge(active, triples)
	b.conflicts = append(b.conflicts, mconflicts...)

	synthesized, err := r.Patch(ctx, merged, b.lookup)
	if err != nil {
		return nil, err
	}
	for i := range synthesized {
		b.foldSynthesized(&synthesized[i])
	}

	res := &Resolution{
		Map:           newResolvedMap(b.entries),
		Conflicts:     b.sortedConflicts(),
		Missing:       b.sortedMissing(),
		Manipulations: merged,
		Synthesized:   synthesized,
		Mods:          mods,
	}

	r.logger.Debug().
		Int("mods", len(active)).
		Int("paths", res.Map.Len()).
		Int("conflicts", len(res.Conflicts)).
		Int("missing", len(res.Missing)).
		Int("synthesized", len(res.Synthesized)).
		Msg("Resolution built")
	return res, nil
}

type claim struct {
	path   domain.GamePath
	target domain.ReplacementTarget
}

func sortedClaims(t ModTriple) []claim {
	claims := make([]claim, 0, len(t.Files)+len(t.Swaps))
	for p, full := range t.Files {
		claims = append(claims, claim{path: p, target: domain.FileTarget(full)})
	}
	for p, to := range t.Swaps {
		claims = append(claims, claim{path: p, target: domain.SwapTarget(to)})
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].path.Less(claims[j].path) })
	return claims
}

// mapBuilder accumulates one pass. Claims arrive in resolution order, so the
// first writer of a path is its final owner.
type mapBuilder struct {
	fs        afero.Fs
	filter    PathFilter
	entries   map[domain.GamePath]*mapEntry
	conflicts []domain.ConflictRecord
	missing   map[string]struct{}
}

func (b *mapBuilder) claimTriple(rank int, e ModEntry, t ModTriple) {
	for _, c := range sortedClaims(t) {
		if b.filter.Excluded(c.path) {
			continue
		}
		if c.target.Kind == domain.TargetFile && !b.exists(c.target.FullPath) {
			b.missing[c.target.FullPath] = struct{}{}
			continue
		}

		prior, ok := b.entries[c.path]
		if !ok {
			b.entries[c.path] = &mapEntry{path: c.path, target: c.target, owner: e.Mod.ID, priority: e.Settings.Priority, rank: rank}
			continue
		}
		if prior.owner == e.Mod.ID {
			continue
		}
		b.conflicts = append(b.conflicts, claimConflicts(prior.owner, prior.priority, e.Mod.ID, e.Settings.Priority, pathKey(c.path))...)
	}
}

// foldSynthesized claims a table's path for the table's highest-priority editor.
// A mod replacing the table file and editing it keeps the patched version without a conflict.
func (b *mapBuilder) foldSynthesized(t *SynthesizedTable) {
	if b.filter.Excluded(t.Path) {
		return
	}
	entry := &mapEntry{path: t.Path, target: domain.SynthesizedTarget(t.FullPath), owner: t.Owner, priority: t.Priority, rank: t.rank}

	prior, ok := b.entries[t.Path]
	switch {
	case !ok, prior.owner == t.Owner:
		b.entries[t.Path] = entry
	case t.rank < prior.rank:
		b.entries[t.Path] = entry
		b.conflicts = append(b.conflicts, claimConflicts(t.Owner, t.Priority, prior.owner, prior.priority, pathKey(t.Path))...)
	default:
		b.conflicts = append(b.conflicts, claimConflicts(prior.owner, prior.priority, t.Owner, t.Priority, pathKey(t.Path))...)
	}
}

func (b *mapBuilder) lookup(p domain.GamePath) (domain.ReplacementTarget, bool) {
	e, ok := b.entries[p]
	if !ok {
		return domain.ReplacementTarget{}, false
	}
	return e.target, true
}

func (b *mapBuilder) exists(fullPath string) bool {
	info, err := b.fs.Stat(fullPath)
	return err == nil && !info.IsDir()
}

func (b *mapBuilder) sortedConflicts() []domain.ConflictRecord {
	out := append([]domain.ConflictRecord(nil), b.conflicts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (b *mapBuilder) sortedMissing() []string {
	out := make([]string, 0, len(b.missing))
	for p := range b.missing {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func pathKey(p domain.GamePath) func(*domain.ConflictRecord) {
	return func(c *domain.ConflictRecord) { c.Path = p }
}

// discardStore rejects every write, so patched tables are dropped
type discardStore struct{}

func (discardStore) Store(content []byte, ext string) (string, error) {
	return "", errors.New("no synthesized store configured")
}
