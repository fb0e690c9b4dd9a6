package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
	"github.com/xivdev/Penumbra-sub003/internal/meta"
)

// SynthesizedTable is a patched record table ready to replace a game file
type SynthesizedTable struct {
	Key      meta.TableKey
	Path     domain.GamePath
	FullPath string // Location in the synthesized store
	Bytes    []byte
	Owner    string // Highest-priority mod that edited the table
	Priority int
	Edits    int // Manipulations that addressed the table
	rank     int
}

// SynthStore persists synthesized tables under content-addressed names
type SynthStore interface {
	Store(content []byte, ext string) (string, error)
}

// SourceLookup returns the file currently resolved for a table path, if any
type SourceLookup func(p domain.GamePath) (domain.ReplacementTarget, bool)

type tableGroup struct {
	key   meta.TableKey
	edits []MergedManipulation
}

func groupByTable(merged []MergedManipulation) []tableGroup {
	byKey := make(map[meta.TableKey]*tableGroup)
	for _, m := range merged {
		key := meta.TableKeyOf(m.ID)
		g, ok := byKey[key]
		if !ok {
			g = &tableGroup{key: key}
			byKey[key] = g
		}
		g.edits = append(g.edits, m)
	}

	groups := make([]tableGroup, 0, len(byKey))
	for _, g := range byKey {
		sort.Slice(g.edits, func(i, j int) bool { return g.edits[i].ID.Less(g.edits[j].ID) })
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].key.Less(groups[j].key) })
	return groups
}

// Patch applies merged manipulations to their record tables and stores every table that changed.
// Tables are read from the resolved file for their path when lookup has one, else from game data.
// A table that cannot be read or parsed is left unchanged and logged.
func (r *Resolver) Patch(ctx context.Context, merged []MergedManipulation, lookup SourceLookup) ([]SynthesizedTable, error) {
	var out []SynthesizedTable
	for _, g := range groupByTable(merged) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		gp, err := domain.NewGamePath(g.key.Path())
		if err != nil {
			r.logger.Warn().Err(err).Str("table", g.key.String()).Msg("Skipping table with invalid path")
			continue
		}

		table, err := r.loadTable(g.key, gp, lookup)
		if err != nil {
			r.logger.Warn().Err(err).Str("table", gp.String()).Msg("Leaving table unchanged")
			continue
		}

		changed := false
		for _, m := range g.edits {
			c, err := table.Apply(m.Manipulation)
			if err != nil {
				r.logger.Warn().Err(err).Str("manipulation", m.ID.String()).Str("mod", m.Owner).Msg("Skipping manipulation")
				continue
			}
			changed = changed || c
		}
		if !changed {
			r.logger.Debug().Str("table", gp.String()).Msg("No effective changes")
			continue
		}

		st := SynthesizedTable{Key: g.key, Path: gp, Bytes: table.Bytes(), Edits: len(g.edits), rank: -1}
		for _, m := range g.edits {
			if st.rank < 0 || m.rank < st.rank {
				st.rank, st.Owner, st.Priority = m.rank, m.Owner, m.Priority
			}
		}
		out = append(out, st)
	}

	return r.flush(ctx, out)
}

func (r *Resolver) loadTable(key meta.TableKey, gp domain.GamePath, lookup SourceLookup) (meta.Table, error) {
	var (
		data []byte
		err  error
	)
	if target, ok := lookupSource(lookup, gp); ok {
		data, err = afero.ReadFile(r.fs, target.FullPath)
	} else {
		data, err = r.tables.ReadTable(gp)
	}

	if errors.Is(err, fs.ErrNotExist) {
		return meta.NewTable(key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", gp, err)
	}

	return meta.ParseTable(key, data)
}

func lookupSource(lookup SourceLookup, gp domain.GamePath) (domain.ReplacementTarget, bool) {
	if lookup == nil {
		return domain.ReplacementTarget{}, false
	}
	target, ok := lookup(gp)
	if !ok || !target.IsFile() {
		return domain.ReplacementTarget{}, false
	}
	return target, true
}

// flush writes tables to the synthesized store in parallel. A table whose write
// fails is dropped from the result.
func (r *Resolver) flush(ctx context.Context, tables []SynthesizedTable) ([]SynthesizedTable, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	stored := make([]bool, len(tables))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.flushLimit)

	for i := range tables {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			t := &tables[i]
			fullPath, err := r.store.Store(t.Bytes, t.Path.Extension())
			if err != nil {
				r.logger.Error().Err(err).Str("table", t.Path.String()).Msg("Failed to store synthesized table")
				return nil
			}
			t.FullPath = fullPath
			stored[i] = true
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := tables[:0]
	for i, t := range tables {
		if stored[i] {
			out = append(out, t)
		}
	}
	return out, nil
}
