package meta_test

import (
	"testing"

	"github.com/xivdev/Penumbra-sub003/internal/meta"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyAll(t *testing.T, table meta.Table, ms ...meta.Manipulation) bool {
	t.Helper()
	changed := false
	for _, m := range ms {
		c, err := table.Apply(m)
		require.NoError(t, err)
		changed = changed || c
	}
	return changed
}

func TestTableKeyOf_Paths(t *testing.T) {
	tests := []struct {
		id   meta.Identifier
		want string
	}{
		{meta.SetKey{SetID: 1, Slot: meta.SlotHead}.Identifier(), "chara/xls/equipmentparameter/equipmentparameter.eqp"},
		{meta.SlotRaceKey{SetID: 1, Race: 101, Slot: meta.SlotBody}.Identifier(), "chara/xls/charadb/equipmentdeformerparameter/c0101.eqdp"},
		{meta.SlotRaceKey{SetID: 1, Race: 101, Slot: meta.SlotNeck}.Identifier(), "chara/xls/charadb/accessorydeformerparameter/c0101.eqdp"},
		{meta.VariantKey{Object: meta.ObjectEquipment, PrimaryID: 201, Variant: 1}.Identifier(), "chara/equipment/e0201/e0201.imc"},
		{meta.VariantKey{Object: meta.ObjectWeapon, PrimaryID: 2001, SecondaryID: 3}.Identifier(), "chara/weapon/w2001/obj/body/b0003/b0003.imc"},
		{meta.BodyPartKey{Part: meta.PartHead, Race: 101, SetID: 1}.Identifier(), "chara/xls/charadb/extra_met.est"},
		{meta.GlobalKey{SubRace: 1, Attribute: 1}.Identifier(), "chara/xls/charamake/human.cmp"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, meta.TableKeyOf(tt.id).Path())
		})
	}
}

func TestSetTable_ApplyOnlyTouchesSlotBits(t *testing.T) {
	key := meta.TableKey{Kind: meta.KindSetRecord}
	table, err := meta.NewTable(key)
	require.NoError(t, err)

	body := meta.NewSet(meta.SetKey{SetID: 2, Slot: meta.SlotBody}, 0xFFFF)
	head := meta.NewSet(meta.SetKey{SetID: 2, Slot: meta.SlotHead}, 0xFF00000000000000)
	assert.True(t, applyAll(t, table, body, head))

	parsed, err := meta.ParseTable(key, table.Bytes())
	require.NoError(t, err)
	assert.Equal(t, table.Bytes(), parsed.Bytes())
	assert.Len(t, table.Bytes(), 3*8)

	// Re-applying the same values is a no-op
	assert.False(t, applyAll(t, parsed, body, head))
}

func TestSetTable_ZeroWriteBeyondEndDoesNotGrow(t *testing.T) {
	table, err := meta.NewTable(meta.TableKey{Kind: meta.KindSetRecord})
	require.NoError(t, err)

	changed := applyAll(t, table, meta.NewSet(meta.SetKey{SetID: 50, Slot: meta.SlotFeet}, 0))
	assert.False(t, changed)
	assert.Empty(t, table.Bytes())
}

func TestTable_RejectsForeignManipulation(t *testing.T) {
	table, err := meta.NewTable(meta.TableKey{Kind: meta.KindSlotRaceRecord, A: 101})
	require.NoError(t, err)

	_, err = table.Apply(meta.NewSlotRace(meta.SlotRaceKey{SetID: 1, Race: 201, Slot: meta.SlotBody}, meta.SlotRaceFlags{Model: true}))
	assert.Error(t, err)
}

func TestSlotRaceTable_Apply(t *testing.T) {
	key := meta.TableKey{Kind: meta.KindSlotRaceRecord, A: 101, B: 1}
	table, err := meta.NewTable(key)
	require.NoError(t, err)

	m := meta.NewSlotRace(meta.SlotRaceKey{SetID: 3, Race: 101, Slot: meta.SlotWrists}, meta.SlotRaceFlags{Material: true, Model: true})
	assert.True(t, applyAll(t, table, m))
	assert.False(t, applyAll(t, table, m))

	// Wrists is the third accessory slot: bits 4 and 5
	data := table.Bytes()
	require.Len(t, data, 8)
	assert.Equal(t, byte(0x30), data[6])
}

func TestVariantTable_GrowsFromDefaultVariant(t *testing.T) {
	key := meta.TableKey{Kind: meta.KindVariantRecord, A: uint16(meta.ObjectEquipment), B: 201}
	table, err := meta.NewTable(key)
	require.NoError(t, err)

	base := meta.NewVariant(meta.VariantKey{Object: meta.ObjectEquipment, PrimaryID: 201, Variant: 0, Slot: meta.SlotBody},
		meta.VariantEntry{MaterialID: 1})
	third := meta.NewVariant(meta.VariantKey{Object: meta.ObjectEquipment, PrimaryID: 201, Variant: 2, Slot: meta.SlotHead},
		meta.VariantEntry{MaterialID: 5, AttributeMask: 0x3FF, SoundID: 0x3F})
	assert.True(t, applyAll(t, table, base, third))

	parsed, err := meta.ParseTable(key, table.Bytes())
	require.NoError(t, err)
	assert.Equal(t, table.Bytes(), parsed.Bytes())
	assert.Len(t, table.Bytes(), 4+3*5*6)

	assert.False(t, applyAll(t, parsed, base, third))
}

func TestVariantTable_GrowthIgnoresEditsToVariantZero(t *testing.T) {
	key := meta.TableKey{Kind: meta.KindVariantRecord, A: uint16(meta.ObjectEquipment), B: 201}
	bodyMaterial := func(data []byte, variant int) byte {
		return data[4+(variant*5+int(meta.SlotBody))*6]
	}

	table, err := meta.NewTable(key)
	require.NoError(t, err)
	edit := meta.NewVariant(meta.VariantKey{Object: meta.ObjectEquipment, PrimaryID: 201, Variant: 0, Slot: meta.SlotBody},
		meta.VariantEntry{MaterialID: 9})
	grow := meta.NewVariant(meta.VariantKey{Object: meta.ObjectEquipment, PrimaryID: 201, Variant: 2, Slot: meta.SlotHead},
		meta.VariantEntry{MaterialID: 5})
	assert.True(t, applyAll(t, table, edit, grow))

	data := table.Bytes()
	assert.Equal(t, byte(9), bodyMaterial(data, 0))
	assert.Zero(t, bodyMaterial(data, 1))
	assert.Zero(t, bodyMaterial(data, 2))

	// A loaded table grows from its loaded variant 0
	source, err := meta.NewTable(key)
	require.NoError(t, err)
	applyAll(t, source, meta.NewVariant(meta.VariantKey{Object: meta.ObjectEquipment, PrimaryID: 201, Variant: 0, Slot: meta.SlotBody},
		meta.VariantEntry{MaterialID: 3}))
	parsed, err := meta.ParseTable(key, source.Bytes())
	require.NoError(t, err)
	assert.True(t, applyAll(t, parsed, edit, grow))

	data = parsed.Bytes()
	assert.Equal(t, byte(9), bodyMaterial(data, 0))
	assert.Equal(t, byte(3), bodyMaterial(data, 1))
	assert.Equal(t, byte(3), bodyMaterial(data, 2))
}

func TestBodyPartTable_InsertUpdateDelete(t *testing.T) {
	key := meta.TableKey{Kind: meta.KindBodyPartRecord, A: uint16(meta.PartHair)}
	table, err := meta.NewTable(key)
	require.NoError(t, err)

	a := meta.BodyPartKey{Part: meta.PartHair, Race: 201, SetID: 5}
	b := meta.BodyPartKey{Part: meta.PartHair, Race: 101, SetID: 9}

	assert.True(t, applyAll(t, table, meta.NewBodyPart(a, 3), meta.NewBodyPart(b, 4)))
	assert.False(t, applyAll(t, table, meta.NewBodyPart(a, 3)))
	assert.True(t, applyAll(t, table, meta.NewBodyPart(a, 8)))

	parsed, err := meta.ParseTable(key, table.Bytes())
	require.NoError(t, err)
	assert.Equal(t, table.Bytes(), parsed.Bytes())

	// Zero removes, and removing a missing entry changes nothing
	assert.True(t, applyAll(t, parsed, meta.NewBodyPart(a, 0)))
	assert.False(t, applyAll(t, parsed, meta.NewBodyPart(a, 0)))
	assert.Len(t, parsed.Bytes(), 4+6)
}

func TestGlobalTable_DefaultsToUnitScale(t *testing.T) {
	key := meta.TableKey{Kind: meta.KindGlobalRecord}
	table, err := meta.NewTable(key)
	require.NoError(t, err)

	assert.False(t, applyAll(t, table, meta.NewGlobal(meta.GlobalKey{SubRace: 1, Attribute: 0}, 1)))
	assert.True(t, applyAll(t, table, meta.NewGlobal(meta.GlobalKey{SubRace: 16, Attribute: 13}, 0.5)))

	parsed, err := meta.ParseTable(key, table.Bytes())
	require.NoError(t, err)
	assert.Equal(t, table.Bytes(), parsed.Bytes())
}

func TestParseTable_Malformed(t *testing.T) {
	_, err := meta.ParseTable(meta.TableKey{Kind: meta.KindSetRecord}, []byte{1, 2, 3})
	assert.ErrorIs(t, err, meta.ErrMalformedTable)

	_, err = meta.ParseTable(meta.TableKey{Kind: meta.KindGlobalRecord}, []byte{0, 0, 0, 0})
	assert.ErrorIs(t, err, meta.ErrMalformedTable)

	_, err = meta.ParseTable(meta.TableKey{Kind: meta.KindVariantRecord, A: uint16(meta.ObjectWeapon)}, []byte{1, 0, 5, 0})
	assert.ErrorIs(t, err, meta.ErrMalformedTable)
}
