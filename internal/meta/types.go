// Package meta implements the metadata manipulation codec: five kinds of small
// binary edits against fixed-format record tables, their fixed-width
// identifier/value encoding, and the in-memory tables they are applied to.
package meta

import (
	"fmt"
	"strings"
)

// Kind tags the record table family a manipulation edits
type Kind uint8

const (
	KindInvalid        Kind = iota
	KindSetRecord           // Per-set-id equipment parameter entry
	KindSlotRaceRecord      // Per-slot, per-race deformer flags
	KindVariantRecord       // Per-variant entry of an item's variant table
	KindBodyPartRecord      // Per-body-part skeleton template entry
	KindGlobalRecord        // Per-global-index scaling value
)

var kindNames = [...]string{"invalid", "set", "slot_race", "variant", "body_part", "global"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the five record kinds
func (k Kind) Valid() bool {
	return k >= KindSetRecord && k <= KindGlobalRecord
}

// ParseKind converts a name to Kind
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if i > 0 && strings.EqualFold(n, s) {
			return Kind(i), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown manipulation type %q", s)
}

// EquipSlot is an equipment or accessory slot
type EquipSlot uint8

const (
	SlotHead EquipSlot = iota
	SlotBody
	SlotHands
	SlotLegs
	SlotFeet
	SlotEars
	SlotNeck
	SlotWrists
	SlotRFinger
	SlotLFinger
	numEquipSlots
)

var slotNames = [...]string{"head", "body", "hands", "legs", "feet", "ears", "neck", "wrists", "rfinger", "lfinger"}

func (s EquipSlot) String() string {
	if s < numEquipSlots {
		return slotNames[s]
	}
	return fmt.Sprintf("slot(%d)", uint8(s))
}

// IsEquipment reports whether s is one of the five armor slots
func (s EquipSlot) IsEquipment() bool {
	return s <= SlotFeet
}

// IsAccessory reports whether s is one of the five accessory slots
func (s EquipSlot) IsAccessory() bool {
	return s >= SlotEars && s < numEquipSlots
}

// index returns the slot's position within its category
func (s EquipSlot) index() int {
	if s.IsAccessory() {
		return int(s - SlotEars)
	}
	return int(s)
}

// ParseEquipSlot converts a name to EquipSlot
func ParseEquipSlot(s string) (EquipSlot, error) {
	for i, n := range slotNames {
		if strings.EqualFold(n, s) {
			return EquipSlot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown equip slot %q", s)
}

// GenderRace is the four-digit race code used in table file names, e.g. 101 for c0101
type GenderRace uint16

// Valid reports whether the code has a known race and gender/age part
func (r GenderRace) Valid() bool {
	race, variant := r/100, r%100
	return race >= 1 && race <= 18 && variant >= 1 && variant <= 4
}

func (r GenderRace) String() string {
	return fmt.Sprintf("c%04d", uint16(r))
}

// ObjectType selects which item family a variant table belongs to
type ObjectType uint8

const (
	ObjectEquipment ObjectType = iota + 1
	ObjectAccessory
	ObjectWeapon
	ObjectMonster
	ObjectDemiHuman
)

var objectNames = [...]string{"", "equipment", "accessory", "weapon", "monster", "demihuman"}

func (o ObjectType) String() string {
	if int(o) < len(objectNames) && o != 0 {
		return objectNames[o]
	}
	return fmt.Sprintf("object(%d)", uint8(o))
}

// Valid reports whether o is a known object type
func (o ObjectType) Valid() bool {
	return o >= ObjectEquipment && o <= ObjectDemiHuman
}

// slotted reports whether the object's variant table has one part per equip slot
func (o ObjectType) slotted() bool {
	return o == ObjectEquipment || o == ObjectAccessory || o == ObjectDemiHuman
}

// ParseObjectType converts a name to ObjectType
func ParseObjectType(s string) (ObjectType, error) {
	for i, n := range objectNames {
		if i > 0 && strings.EqualFold(n, s) {
			return ObjectType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown object type %q", s)
}

// BodyPart selects a skeleton template table
type BodyPart uint8

const (
	PartHair BodyPart = iota + 1
	PartFace
	PartBody
	PartHead
)

var partNames = [...]string{"", "hair", "face", "body", "head"}

func (p BodyPart) String() string {
	if int(p) < len(partNames) && p != 0 {
		return partNames[p]
	}
	return fmt.Sprintf("part(%d)", uint8(p))
}

// Valid reports whether p is a known body part
func (p BodyPart) Valid() bool {
	return p >= PartHair && p <= PartHead
}

// ParseBodyPart converts a name to BodyPart
func ParseBodyPart(s string) (BodyPart, error) {
	for i, n := range partNames {
		if i > 0 && strings.EqualFold(n, s) {
			return BodyPart(i), nil
		}
	}
	return 0, fmt.Errorf("unknown body part %q", s)
}

const (
	// NumSubRaces is the number of rows in the global scaling table
	NumSubRaces = 16
	// NumAttributes is the number of scaling attributes per sub-race
	NumAttributes = 14
)
