package meta

import (
	"errors"
	"fmt"
)

// ErrMalformedTable is returned when table bytes cannot be parsed
var ErrMalformedTable = errors.New("malformed record table")

// Table is an in-memory record table that manipulations are applied to.
// Implementations are the record codec for one kind.
type Table interface {
	Key() TableKey
	// Apply writes m's value into the addressed cell and reports whether the cell changed.
	Apply(m Manipulation) (bool, error)
	// Bytes serializes the whole table.
	Bytes() []byte
}

// TableKey identifies one record table file.
// It is derived from an identifier's kind and the key fields that select the file.
type TableKey struct {
	Kind Kind
	A    uint16 // Race, object type or body part
	B    uint16 // Accessory flag or primary id
	C    uint16 // Secondary id
}

// TableKeyOf returns the table a manipulation identifier addresses
func TableKeyOf(id Identifier) TableKey {
	switch id.Kind() {
	case KindSetRecord:
		return TableKey{Kind: KindSetRecord}
	case KindSlotRaceRecord:
		k, _ := id.SlotRaceKey()
		var acc uint16
		if k.Slot.IsAccessory() {
			acc = 1
		}
		return TableKey{Kind: KindSlotRaceRecord, A: uint16(k.Race), B: acc}
	case KindVariantRecord:
		k, _ := id.VariantKey()
		return TableKey{Kind: KindVariantRecord, A: uint16(k.Object), B: k.PrimaryID, C: k.SecondaryID}
	case KindBodyPartRecord:
		k, _ := id.BodyPartKey()
		return TableKey{Kind: KindBodyPartRecord, A: uint16(k.Part)}
	case KindGlobalRecord:
		return TableKey{Kind: KindGlobalRecord}
	default:
		return TableKey{}
	}
}

// Path returns the game path of the table file
func (k TableKey) Path() string {
	switch k.Kind {
	case KindSetRecord:
		return "chara/xls/equipmentparameter/equipmentparameter.eqp"
	case KindSlotRaceRecord:
		if k.B == 1 {
			return fmt.Sprintf("chara/xls/charadb/accessorydeformerparameter/c%04d.eqdp", k.A)
		}
		return fmt.Sprintf("chara/xls/charadb/equipmentdeformerparameter/c%04d.eqdp", k.A)
	case KindVariantRecord:
		switch ObjectType(k.A) {
		case ObjectEquipment:
			return fmt.Sprintf("chara/equipment/e%04d/e%04d.imc", k.B, k.B)
		case ObjectAccessory:
			return fmt.Sprintf("chara/accessory/a%04d/a%04d.imc", k.B, k.B)
		case ObjectWeapon:
			return fmt.Sprintf("chara/weapon/w%04d/obj/body/b%04d/b%04d.imc", k.B, k.C, k.C)
		case ObjectMonster:
			return fmt.Sprintf("chara/monster/m%04d/obj/body/b%04d/b%04d.imc", k.B, k.C, k.C)
		case ObjectDemiHuman:
			return fmt.Sprintf("chara/demihuman/d%04d/obj/equipment/e%04d/e%04d.imc", k.B, k.C, k.C)
		}
	case KindBodyPartRecord:
		switch BodyPart(k.A) {
		case PartHair:
			return "chara/xls/charadb/hairskeletontemplate.est"
		case PartFace:
			return "chara/xls/charadb/faceskeletontemplate.est"
		case PartBody:
			return "chara/xls/charadb/extra_top.est"
		case PartHead:
			return "chara/xls/charadb/extra_met.est"
		}
	case KindGlobalRecord:
		return "chara/xls/charamake/human.cmp"
	}
	return ""
}

// Less orders table keys by their fields
func (k TableKey) Less(o TableKey) bool {
	if k.Kind != o.Kind {
		return k.Kind < o.Kind
	}
	if k.A != o.A {
		return k.A < o.A
	}
	if k.B != o.B {
		return k.B < o.B
	}
	return k.C < o.C
}

func (k TableKey) String() string {
	return k.Path()
}

// NewTable returns a default-constructed table for key
func NewTable(key TableKey) (Table, error) {
	switch key.Kind {
	case KindSetRecord:
		return newSetTable(), nil
	case KindSlotRaceRecord:
		return newSlotRaceTable(key), nil
	case KindVariantRecord:
		return newVariantTable(key), nil
	case KindBodyPartRecord:
		return newBodyPartTable(key), nil
	case KindGlobalRecord:
		return newGlobalTable(), nil
	default:
		return nil, fmt.Errorf("no table for kind %s", key.Kind)
	}
}

// ParseTable reads the serialized form of the table for key
func ParseTable(key TableKey, data []byte) (Table, error) {
	switch key.Kind {
	case KindSetRecord:
		return parseSetTable(data)
	case KindSlotRaceRecord:
		return parseSlotRaceTable(key, data)
	case KindVariantRecord:
		return parseVariantTable(key, data)
	case KindBodyPartRecord:
		return parseBodyPartTable(key, data)
	case KindGlobalRecord:
		return parseGlobalTable(data)
	default:
		return nil, fmt.Errorf("no table for kind %s", key.Kind)
	}
}

// checkTarget rejects manipulations that do not address table t
func checkTarget(t Table, m Manipulation) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if TableKeyOf(m.ID) != t.Key() {
		return fmt.Errorf("%s does not address table %s", m.ID, t.Key())
	}
	return nil
}
