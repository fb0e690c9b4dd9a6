package meta

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueSize is the encoded width of a Value
const ValueSize = 8

// Value is the fixed-width payload written into the cell an Identifier addresses.
// Its layout depends on the identifier's kind; unused bytes are zero.
type Value [ValueSize]byte

// setSlotMasks gives the bits of a set entry owned by each equipment slot
var setSlotMasks = [...]uint64{
	SlotHead:  0xFFFFFF0000000000,
	SlotBody:  0x000000000000FFFF,
	SlotHands: 0x00000000FF000000,
	SlotLegs:  0x0000000000FF0000,
	SlotFeet:  0x000000FF00000000,
}

// SetSlotMask returns the entry bits owned by an equipment slot
func SetSlotMask(slot EquipSlot) uint64 {
	if !slot.IsEquipment() {
		return 0
	}
	return setSlotMasks[slot]
}

// SetValue encodes a set entry
func SetValue(entry uint64) Value {
	var v Value
	binary.LittleEndian.PutUint64(v[:], entry)
	return v
}

// SetEntry decodes a set entry
func (v Value) SetEntry() uint64 {
	return binary.LittleEndian.Uint64(v[:])
}

// SlotRaceFlags are the two deformer flags of one slot
type SlotRaceFlags struct {
	Material bool
	Model    bool
}

func (f SlotRaceFlags) bits() uint16 {
	var b uint16
	if f.Material {
		b |= 1
	}
	if f.Model {
		b |= 2
	}
	return b
}

func slotRaceFlagsFromBits(b uint16) SlotRaceFlags {
	return SlotRaceFlags{Material: b&1 != 0, Model: b&2 != 0}
}

// SlotRaceValue encodes deformer flags
func SlotRaceValue(f SlotRaceFlags) Value {
	var v Value
	v[0] = byte(f.bits())
	return v
}

// SlotRaceFlags decodes deformer flags
func (v Value) SlotRaceFlags() SlotRaceFlags {
	return slotRaceFlagsFromBits(uint16(v[0]))
}

// VariantEntry is one entry of a variant table
type VariantEntry struct {
	MaterialID          uint8
	DecalID             uint8
	AttributeMask       uint16 // 10 bits
	SoundID             uint8  // 6 bits
	VfxID               uint8
	MaterialAnimationID uint8
}

const (
	maxAttributeMask = 0x3FF
	maxSoundID       = 0x3F
)

// VariantValue encodes a variant entry
func VariantValue(e VariantEntry) Value {
	var v Value
	v[0] = e.MaterialID
	v[1] = e.DecalID
	binary.LittleEndian.PutUint16(v[2:4], e.AttributeMask)
	v[4] = e.SoundID
	v[5] = e.VfxID
	v[6] = e.MaterialAnimationID
	return v
}

// VariantEntry decodes a variant entry
func (v Value) VariantEntry() VariantEntry {
	return VariantEntry{
		MaterialID:          v[0],
		DecalID:             v[1],
		AttributeMask:       binary.LittleEndian.Uint16(v[2:4]),
		SoundID:             v[4],
		VfxID:               v[5],
		MaterialAnimationID: v[6],
	}
}

// BodyPartValue encodes a skeleton template id; zero removes the entry
func BodyPartValue(skeleton uint16) Value {
	var v Value
	binary.LittleEndian.PutUint16(v[:2], skeleton)
	return v
}

// Skeleton decodes a skeleton template id
func (v Value) Skeleton() uint16 {
	return binary.LittleEndian.Uint16(v[:2])
}

// GlobalValue encodes a scaling value
func GlobalValue(f float32) Value {
	var v Value
	binary.LittleEndian.PutUint32(v[:4], math.Float32bits(f))
	return v
}

// Float decodes a scaling value
func (v Value) Float() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(v[:4]))
}

// validateFor checks that the value is well-formed for kind k
func (v Value) validateFor(id Identifier) error {
	unused := func(from int) error {
		for _, b := range v[from:] {
			if b != 0 {
				return fmt.Errorf("%s: non-zero bytes past payload", id.Kind())
			}
		}
		return nil
	}

	switch id.Kind() {
	case KindSetRecord:
		k, _ := id.SetKey()
		if v.SetEntry()&^SetSlotMask(k.Slot) != 0 {
			return fmt.Errorf("set record: entry %#016x sets bits outside slot %s", v.SetEntry(), k.Slot)
		}
		return nil
	case KindSlotRaceRecord:
		if v[0]&^3 != 0 {
			return fmt.Errorf("slot/race record: invalid flags %#x", v[0])
		}
		return unused(1)
	case KindVariantRecord:
		e := v.VariantEntry()
		if e.AttributeMask > maxAttributeMask {
			return fmt.Errorf("variant record: attribute mask %#x exceeds 10 bits", e.AttributeMask)
		}
		if e.SoundID > maxSoundID {
			return fmt.Errorf("variant record: sound id %d exceeds 6 bits", e.SoundID)
		}
		return unused(7)
	case KindBodyPartRecord:
		return unused(2)
	case KindGlobalRecord:
		f := v.Float()
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) || f < 0 {
			return fmt.Errorf("global record: invalid scale %v", f)
		}
		return unused(4)
	default:
		return fmt.Errorf("unknown manipulation kind %d", id[0])
	}
}
