package meta

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// IdentifierSize is the encoded width of an Identifier
const IdentifierSize = 8

// Identifier names one edit slot in one record table.
// Byte 0 is the Kind, the remaining bytes are the kind's key fields, big-endian,
// so byte order equals field order. Equality and ordering never look at a value.
type Identifier [IdentifierSize]byte

// Kind returns the identifier's tag
func (id Identifier) Kind() Kind {
	return Kind(id[0])
}

// IsZero reports whether id is the zero identifier
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

// Compare orders identifiers by their raw bytes
func (id Identifier) Compare(o Identifier) int {
	return bytes.Compare(id[:], o[:])
}

// Less reports whether id sorts before o
func (id Identifier) Less(o Identifier) bool {
	return id.Compare(o) < 0
}

// SetKey addresses a slot's bits in the entry for one equipment set
type SetKey struct {
	SetID uint16
	Slot  EquipSlot
}

// Identifier encodes the key
func (k SetKey) Identifier() Identifier {
	var id Identifier
	id[0] = byte(KindSetRecord)
	binary.BigEndian.PutUint16(id[1:3], k.SetID)
	id[3] = byte(k.Slot)
	return id
}

// SlotRaceKey addresses the deformer flags of one slot of one set for one race
type SlotRaceKey struct {
	SetID uint16
	Race  GenderRace
	Slot  EquipSlot
}

// Identifier encodes the key
func (k SlotRaceKey) Identifier() Identifier {
	var id Identifier
	id[0] = byte(KindSlotRaceRecord)
	binary.BigEndian.PutUint16(id[1:3], uint16(k.Race))
	binary.BigEndian.PutUint16(id[3:5], k.SetID)
	id[5] = byte(k.Slot)
	return id
}

// VariantKey addresses one variant entry of an item's variant table.
// Slot is only meaningful for slotted object types and must be zero otherwise.
type VariantKey struct {
	Object      ObjectType
	PrimaryID   uint16
	SecondaryID uint16
	Variant     uint8
	Slot        EquipSlot
}

// Identifier encodes the key
func (k VariantKey) Identifier() Identifier {
	var id Identifier
	id[0] = byte(KindVariantRecord)
	id[1] = byte(k.Object)
	binary.BigEndian.PutUint16(id[2:4], k.PrimaryID)
	binary.BigEndian.PutUint16(id[4:6], k.SecondaryID)
	id[6] = k.Variant
	id[7] = byte(k.Slot)
	return id
}

// BodyPartKey addresses the skeleton template of one set for one race
type BodyPartKey struct {
	Part  BodyPart
	Race  GenderRace
	SetID uint16
}

// Identifier encodes the key
func (k BodyPartKey) Identifier() Identifier {
	var id Identifier
	id[0] = byte(KindBodyPartRecord)
	id[1] = byte(k.Part)
	binary.BigEndian.PutUint16(id[2:4], uint16(k.Race))
	binary.BigEndian.PutUint16(id[4:6], k.SetID)
	return id
}

// GlobalKey addresses one scaling attribute of one sub-race
type GlobalKey struct {
	SubRace   uint8 // 1-based
	Attribute uint8
}

// Identifier encodes the key
func (k GlobalKey) Identifier() Identifier {
	var id Identifier
	id[0] = byte(KindGlobalRecord)
	id[1] = k.SubRace
	id[2] = k.Attribute
	return id
}

// SetKey decodes a KindSetRecord identifier
func (id Identifier) SetKey() (SetKey, bool) {
	if id.Kind() != KindSetRecord {
		return SetKey{}, false
	}
	return SetKey{SetID: binary.BigEndian.Uint16(id[1:3]), Slot: EquipSlot(id[3])}, true
}

// SlotRaceKey decodes a KindSlotRaceRecord identifier
func (id Identifier) SlotRaceKey() (SlotRaceKey, bool) {
	if id.Kind() != KindSlotRaceRecord {
		return SlotRaceKey{}, false
	}
	return SlotRaceKey{
		Race:  GenderRace(binary.BigEndian.Uint16(id[1:3])),
		SetID: binary.BigEndian.Uint16(id[3:5]),
		Slot:  EquipSlot(id[5]),
	}, true
}

// VariantKey decodes a KindVariantRecord identifier
func (id Identifier) VariantKey() (VariantKey, bool) {
	if id.Kind() != KindVariantRecord {
		return VariantKey{}, false
	}
	return VariantKey{
		Object:      ObjectType(id[1]),
		PrimaryID:   binary.BigEndian.Uint16(id[2:4]),
		SecondaryID: binary.BigEndian.Uint16(id[4:6]),
		Variant:     id[6],
		Slot:        EquipSlot(id[7]),
	}, true
}

// BodyPartKey decodes a KindBodyPartRecord identifier
func (id Identifier) BodyPartKey() (BodyPartKey, bool) {
	if id.Kind() != KindBodyPartRecord {
		return BodyPartKey{}, false
	}
	return BodyPartKey{
		Part:  BodyPart(id[1]),
		Race:  GenderRace(binary.BigEndian.Uint16(id[2:4])),
		SetID: binary.BigEndian.Uint16(id[4:6]),
	}, true
}

// GlobalKey decodes a KindGlobalRecord identifier
func (id Identifier) GlobalKey() (GlobalKey, bool) {
	if id.Kind() != KindGlobalRecord {
		return GlobalKey{}, false
	}
	return GlobalKey{SubRace: id[1], Attribute: id[2]}, true
}

// Validate checks the key fields of the identifier's kind
func (id Identifier) Validate() error {
	switch id.Kind() {
	case KindSetRecord:
		k, _ := id.SetKey()
		if !k.Slot.IsEquipment() {
			return fmt.Errorf("set record: slot %s is not an equipment slot", k.Slot)
		}
		if id[4] != 0 || id[5] != 0 || id[6] != 0 || id[7] != 0 {
			return fmt.Errorf("set record: non-zero padding")
		}
	case KindSlotRaceRecord:
		k, _ := id.SlotRaceKey()
		if !k.Race.Valid() {
			return fmt.Errorf("slot/race record: invalid race %d", k.Race)
		}
		if k.Slot >= numEquipSlots {
			return fmt.Errorf("slot/race record: invalid slot %d", k.Slot)
		}
		if id[6] != 0 || id[7] != 0 {
			return fmt.Errorf("slot/race record: non-zero padding")
		}
	case KindVariantRecord:
		k, _ := id.VariantKey()
		if !k.Object.Valid() {
			return fmt.Errorf("variant record: invalid object type %d", k.Object)
		}
		switch k.Object {
		case ObjectEquipment, ObjectDemiHuman:
			if !k.Slot.IsEquipment() {
				return fmt.Errorf("variant record: slot %s is not an equipment slot", k.Slot)
			}
		case ObjectAccessory:
			if !k.Slot.IsAccessory() {
				return fmt.Errorf("variant record: slot %s is not an accessory slot", k.Slot)
			}
		default:
			if k.Slot != 0 {
				return fmt.Errorf("variant record: %s has no slots", k.Object)
			}
		}
	case KindBodyPartRecord:
		k, _ := id.BodyPartKey()
		if !k.Part.Valid() {
			return fmt.Errorf("body part record: invalid part %d", k.Part)
		}
		if !k.Race.Valid() {
			return fmt.Errorf("body part record: invalid race %d", k.Race)
		}
		if id[6] != 0 || id[7] != 0 {
			return fmt.Errorf("body part record: non-zero padding")
		}
	case KindGlobalRecord:
		k, _ := id.GlobalKey()
		if k.SubRace < 1 || k.SubRace > NumSubRaces {
			return fmt.Errorf("global record: invalid sub-race %d", k.SubRace)
		}
		if k.Attribute >= NumAttributes {
			return fmt.Errorf("global record: invalid attribute %d", k.Attribute)
		}
		for _, b := range id[3:] {
			if b != 0 {
				return fmt.Errorf("global record: non-zero padding")
			}
		}
	default:
		return fmt.Errorf("unknown manipulation kind %d", id[0])
	}
	return nil
}

func (id Identifier) String() string {
	switch id.Kind() {
	case KindSetRecord:
		k, _ := id.SetKey()
		return fmt.Sprintf("set(%d,%s)", k.SetID, k.Slot)
	case KindSlotRaceRecord:
		k, _ := id.SlotRaceKey()
		return fmt.Sprintf("slot_race(%d,%s,%s)", k.SetID, k.Race, k.Slot)
	case KindVariantRecord:
		k, _ := id.VariantKey()
		if k.Object.slotted() {
			return fmt.Sprintf("variant(%s,%d,%d,v%d,%s)", k.Object, k.PrimaryID, k.SecondaryID, k.Variant, k.Slot)
		}
		return fmt.Sprintf("variant(%s,%d,%d,v%d)", k.Object, k.PrimaryID, k.SecondaryID, k.Variant)
	case KindBodyPartRecord:
		k, _ := id.BodyPartKey()
		return fmt.Sprintf("body_part(%s,%s,%d)", k.Part, k.Race, k.SetID)
	case KindGlobalRecord:
		k, _ := id.GlobalKey()
		return fmt.Sprintf("global(%d,%d)", k.SubRace, k.Attribute)
	default:
		return fmt.Sprintf("invalid(%x)", id[:])
	}
}
