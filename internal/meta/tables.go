package meta

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// setTable stores one 64-bit entry per equipment set, indexed by set id
type setTable struct {
	entries []uint64
}

func newSetTable() *setTable {
	return &setTable{}
}

func parseSetTable(data []byte) (*setTable, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: set table length %d", ErrMalformedTable, len(data))
	}
	t := &setTable{entries: make([]uint64, len(data)/8)}
	for i := range t.entries {
		t.entries[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	return t, nil
}

func (t *setTable) Key() TableKey { return TableKey{Kind: KindSetRecord} }

func (t *setTable) Apply(m Manipulation) (bool, error) {
	if err := checkTarget(t, m); err != nil {
		return false, err
	}
	k, _ := m.ID.SetKey()
	mask := SetSlotMask(k.Slot)
	want := m.Value.SetEntry() & mask

	idx := int(k.SetID)
	if idx >= len(t.entries) {
		if want == 0 {
			return false, nil
		}
		grown := make([]uint64, idx+1)
		copy(grown, t.entries)
		t.entries = grown
	}

	old := t.entries[idx]
	next := old&^mask | want
	t.entries[idx] = next
	return next != old, nil
}

func (t *setTable) Bytes() []byte {
	out := make([]byte, len(t.entries)*8)
	for i, e := range t.entries {
		binary.LittleEndian.PutUint64(out[i*8:], e)
	}
	return out
}

// slotRaceTable stores two flag bits per slot for each set, one table per race and slot category
type slotRaceTable struct {
	key     TableKey
	entries []uint16
}

func newSlotRaceTable(key TableKey) *slotRaceTable {
	return &slotRaceTable{key: key}
}

func parseSlotRaceTable(key TableKey, data []byte) (*slotRaceTable, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: slot/race table length %d", ErrMalformedTable, len(data))
	}
	t := &slotRaceTable{key: key, entries: make([]uint16, len(data)/2)}
	for i := range t.entries {
		t.entries[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return t, nil
}

func (t *slotRaceTable) Key() TableKey { return t.key }

func (t *slotRaceTable) Apply(m Manipulation) (bool, error) {
	if err := checkTarget(t, m); err != nil {
		return false, err
	}
	k, _ := m.ID.SlotRaceKey()
	shift := uint(k.Slot.index() * 2)
	want := m.Value.SlotRaceFlags().bits() << shift

	idx := int(k.SetID)
	if idx >= len(t.entries) {
		if want == 0 {
			return false, nil
		}
		grown := make([]uint16, idx+1)
		copy(grown, t.entries)
		t.entries = grown
	}

	old := t.entries[idx]
	next := old&^(3<<shift) | want
	t.entries[idx] = next
	return next != old, nil
}

func (t *slotRaceTable) Bytes() []byte {
	out := make([]byte, len(t.entries)*2)
	for i, e := range t.entries {
		binary.LittleEndian.PutUint16(out[i*2:], e)
	}
	return out
}

const variantEntrySize = 6

// variantTable stores one entry per part for every variant of one item.
// Added variants start from variant 0 as it was before any edit.
type variantTable struct {
	key      TableKey
	parts    int
	variants [][]VariantEntry
	defaults []VariantEntry
}

func variantParts(key TableKey) int {
	if ObjectType(key.A).slotted() {
		return 5
	}
	return 1
}

func newVariantTable(key TableKey) *variantTable {
	parts := variantParts(key)
	return &variantTable{
		key:      key,
		parts:    parts,
		variants: [][]VariantEntry{make([]VariantEntry, parts)},
		defaults: make([]VariantEntry, parts),
	}
}

func parseVariantTable(key TableKey, data []byte) (*variantTable, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: variant table header", ErrMalformedTable)
	}
	count := int(binary.LittleEndian.Uint16(data[0:2]))
	parts := int(binary.LittleEndian.Uint16(data[2:4]))
	if parts != variantParts(key) {
		return nil, fmt.Errorf("%w: variant table has %d parts, want %d", ErrMalformedTable, parts, variantParts(key))
	}
	if count == 0 || len(data) != 4+count*parts*variantEntrySize {
		return nil, fmt.Errorf("%w: variant table length %d for %d variants", ErrMalformedTable, len(data), count)
	}

	t := &variantTable{key: key, parts: parts, variants: make([][]VariantEntry, count)}
	off := 4
	for v := range t.variants {
		t.variants[v] = make([]VariantEntry, parts)
		for p := range t.variants[v] {
			t.variants[v][p] = decodeVariantEntry(data[off : off+variantEntrySize])
			off += variantEntrySize
		}
	}
	t.defaults = append([]VariantEntry(nil), t.variants[0]...)
	return t, nil
}

func decodeVariantEntry(b []byte) VariantEntry {
	packed := binary.LittleEndian.Uint16(b[2:4])
	return VariantEntry{
		MaterialID:          b[0],
		DecalID:             b[1],
		AttributeMask:       packed & maxAttributeMask,
		SoundID:             uint8(packed >> 10),
		VfxID:               b[4],
		MaterialAnimationID: b[5],
	}
}

func encodeVariantEntry(b []byte, e VariantEntry) {
	b[0] = e.MaterialID
	b[1] = e.DecalID
	binary.LittleEndian.PutUint16(b[2:4], e.AttributeMask&maxAttributeMask|uint16(e.SoundID)<<10)
	b[4] = e.VfxID
	b[5] = e.MaterialAnimationID
}

func (t *variantTable) Key() TableKey { return t.key }

func (t *variantTable) Apply(m Manipulation) (bool, error) {
	if err := checkTarget(t, m); err != nil {
		return false, err
	}
	k, _ := m.ID.VariantKey()
	part := 0
	if t.parts > 1 {
		part = k.Slot.index()
	}

	changed := false
	for len(t.variants) <= int(k.Variant) {
		fresh := make([]VariantEntry, t.parts)
		copy(fresh, t.defaults)
		t.variants = append(t.variants, fresh)
		changed = true
	}

	want := m.Value.VariantEntry()
	if t.variants[k.Variant][part] != want {
		t.variants[k.Variant][part] = want
		changed = true
	}
	return changed, nil
}

func (t *variantTable) Bytes() []byte {
	out := make([]byte, 4+len(t.variants)*t.parts*variantEntrySize)
	binary.LittleEndian.PutUint16(out[0:2], uint16(len(t.variants)))
	binary.LittleEndian.PutUint16(out[2:4], uint16(t.parts))
	off := 4
	for _, v := range t.variants {
		for _, e := range v {
			encodeVariantEntry(out[off:off+variantEntrySize], e)
			off += variantEntrySize
		}
	}
	return out
}

type bodyPartEntry struct {
	race     GenderRace
	setID    uint16
	skeleton uint16
}

// bodyPartTable is a sorted list of (race, set) -> skeleton entries for one body part
type bodyPartTable struct {
	key     TableKey
	entries []bodyPartEntry
}

func newBodyPartTable(key TableKey) *bodyPartTable {
	return &bodyPartTable{key: key}
}

func parseBodyPartTable(key TableKey, data []byte) (*bodyPartTable, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: body part table header", ErrMalformedTable)
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	if count < 0 || len(data) != 4+count*6 {
		return nil, fmt.Errorf("%w: body part table length %d for %d entries", ErrMalformedTable, len(data), count)
	}

	t := &bodyPartTable{key: key, entries: make([]bodyPartEntry, count)}
	skel := 4 + count*4
	for i := range t.entries {
		t.entries[i] = bodyPartEntry{
			race:     GenderRace(binary.LittleEndian.Uint16(data[4+i*4:])),
			setID:    binary.LittleEndian.Uint16(data[6+i*4:]),
			skeleton: binary.LittleEndian.Uint16(data[skel+i*2:]),
		}
	}
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].less(t.entries[j].race, t.entries[j].setID) })
	return t, nil
}

func (e bodyPartEntry) less(race GenderRace, setID uint16) bool {
	if e.race != race {
		return e.race < race
	}
	return e.setID < setID
}

func (t *bodyPartTable) Key() TableKey { return t.key }

func (t *bodyPartTable) Apply(m Manipulation) (bool, error) {
	if err := checkTarget(t, m); err != nil {
		return false, err
	}
	k, _ := m.ID.BodyPartKey()
	want := m.Value.Skeleton()

	i := sort.Search(len(t.entries), func(i int) bool { return !t.entries[i].less(k.Race, k.SetID) })
	found := i < len(t.entries) && t.entries[i].race == k.Race && t.entries[i].setID == k.SetID

	switch {
	case want == 0 && !found:
		return false, nil
	case want == 0:
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return true, nil
	case found:
		if t.entries[i].skeleton == want {
			return false, nil
		}
		t.entries[i].skeleton = want
		return true, nil
	default:
		t.entries = append(t.entries, bodyPartEntry{})
		copy(t.entries[i+1:], t.entries[i:])
		t.entries[i] = bodyPartEntry{race: k.Race, setID: k.SetID, skeleton: want}
		return true, nil
	}
}

func (t *bodyPartTable) Bytes() []byte {
	count := len(t.entries)
	out := make([]byte, 4+count*6)
	binary.LittleEndian.PutUint32(out[0:4], uint32(count))
	skel := 4 + count*4
	for i, e := range t.entries {
		binary.LittleEndian.PutUint16(out[4+i*4:], uint16(e.race))
		binary.LittleEndian.PutUint16(out[6+i*4:], e.setID)
		binary.LittleEndian.PutUint16(out[skel+i*2:], e.skeleton)
	}
	return out
}

// globalTable is the dense sub-race by attribute grid of scaling values
type globalTable struct {
	values [NumSubRaces][NumAttributes]float32
}

func newGlobalTable() *globalTable {
	t := &globalTable{}
	for r := range t.values {
		for a := range t.values[r] {
			t.values[r][a] = 1
		}
	}
	return t
}

func parseGlobalTable(data []byte) (*globalTable, error) {
	if len(data) != NumSubRaces*NumAttributes*4 {
		return nil, fmt.Errorf("%w: global table length %d", ErrMalformedTable, len(data))
	}
	t := &globalTable{}
	off := 0
	for r := range t.values {
		for a := range t.values[r] {
			t.values[r][a] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
	}
	return t, nil
}

func (t *globalTable) Key() TableKey { return TableKey{Kind: KindGlobalRecord} }

func (t *globalTable) Apply(m Manipulation) (bool, error) {
	if err := checkTarget(t, m); err != nil {
		return false, err
	}
	k, _ := m.ID.GlobalKey()
	cell := &t.values[k.SubRace-1][k.Attribute]
	want := m.Value.Float()
	if math.Float32bits(*cell) == math.Float32bits(want) {
		return false, nil
	}
	*cell = want
	return true, nil
}

func (t *globalTable) Bytes() []byte {
	out := make([]byte, NumSubRaces*NumAttributes*4)
	off := 0
	for r := range t.values {
		for a := range t.values[r] {
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(t.values[r][a]))
			off += 4
		}
	}
	return out
}
