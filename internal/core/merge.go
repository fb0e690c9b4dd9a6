package core

import (
	"sort"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
	"github.com/xivdev/Penumbra-sub003/internal/meta"
)

// MergedManipulation is the winning value for one identifier across all mods
type MergedManipulation struct {
	meta.Manipulation
	Owner    string
	Priority int
	rank     int
}

// Merge combines the manipulations of mods given in resolution order.
// The first mod to claim an identifier keeps it; later claims only add conflicts.
// triples[i] belongs to entries[i].
func Merge(entries []ModEntry, triples []ModTriple) ([]MergedManipulation, []domain.ConflictRecord) {
	claims := make(map[meta.Identifier]*MergedManipulation)
	var conflicts []domain.ConflictRecord

	for i, e := range entries {
		if i >= len(triples) {
			break
		}
		for _, id := range sortedIdentifiers(triples[i].Manipulations) {
			prior, ok := claims[id]
			if !ok {
				claims[id] = &MergedManipulation{
					Manipulation: meta.Manipulation{ID: id, Value: triples[i].Manipulations[id]},
					Owner:        e.Mod.ID,
					Priority:     e.Settings.Priority,
					rank:         i,
				}
				continue
			}
			if prior.Owner == e.Mod.ID {
				continue
			}
			conflicts = append(conflicts, claimConflicts(prior.Owner, prior.Priority, e.Mod.ID, e.Settings.Priority, func(c *domain.ConflictRecord) {
				c.Manipulation = id
			})...)
		}
	}

	merged := make([]MergedManipulation, 0, len(claims))
	for _, m := range claims {
		merged = append(merged, *m)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID.Less(merged[j].ID) })
	return merged, conflicts
}

// claimConflicts records a lost claim. Equal priorities are unsolved in both directions.
func claimConflicts(owner string, ownerPriority int, other string, otherPriority int, key func(*domain.ConflictRecord)) []domain.ConflictRecord {
	c := domain.ConflictRecord{Mod: owner, Other: other, Solved: ownerPriority > otherPriority}
	key(&c)
	if ownerPriority != otherPriority {
		return []domain.ConflictRecord{c}
	}
	r := domain.ConflictRecord{Mod: other, Other: owner}
	key(&r)
	return []domain.ConflictRecord{c, r}
}

func sortedIdentifiers(ms map[meta.Identifier]meta.Value) []meta.Identifier {
	ids := make([]meta.Identifier, 0, len(ms))
	for id := range ms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}
