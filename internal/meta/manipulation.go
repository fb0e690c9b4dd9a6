package meta

import (
	"errors"
	"fmt"
	"sort"
)

// ManipulationSize is the encoded width of a Manipulation
const ManipulationSize = IdentifierSize + ValueSize

// ErrInvalidManipulation is returned for manipulations that fail validation
var ErrInvalidManipulation = errors.New("invalid manipulation")

// Manipulation is a requested value for one identified record cell
type Manipulation struct {
	ID    Identifier
	Value Value
}

// NewSet builds a set record manipulation; entry bits outside the slot are dropped
func NewSet(key SetKey, entry uint64) Manipulation {
	return Manipulation{ID: key.Identifier(), Value: SetValue(entry & SetSlotMask(key.Slot))}
}

// NewSlotRace builds a slot/race record manipulation
func NewSlotRace(key SlotRaceKey, flags SlotRaceFlags) Manipulation {
	return Manipulation{ID: key.Identifier(), Value: SlotRaceValue(flags)}
}

// NewVariant builds a variant record manipulation
func NewVariant(key VariantKey, entry VariantEntry) Manipulation {
	return Manipulation{ID: key.Identifier(), Value: VariantValue(entry)}
}

// NewBodyPart builds a body part record manipulation
func NewBodyPart(key BodyPartKey, skeleton uint16) Manipulation {
	return Manipulation{ID: key.Identifier(), Value: BodyPartValue(skeleton)}
}

// NewGlobal builds a global record manipulation
func NewGlobal(key GlobalKey, scale float32) Manipulation {
	return Manipulation{ID: key.Identifier(), Value: GlobalValue(scale)}
}

// Kind returns the manipulation's record kind
func (m Manipulation) Kind() Kind {
	return m.ID.Kind()
}

// Validate checks both the identifier and the value
func (m Manipulation) Validate() error {
	if err := m.ID.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManipulation, err)
	}
	if err := m.Value.validateFor(m.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidManipulation, err)
	}
	return nil
}

// Bytes returns the 16-byte encoding: identifier followed by value
func (m Manipulation) Bytes() []byte {
	b := make([]byte, 0, ManipulationSize)
	b = append(b, m.ID[:]...)
	return append(b, m.Value[:]...)
}

// ParseManipulation decodes and validates a 16-byte encoding
func ParseManipulation(b []byte) (Manipulation, error) {
	if len(b) != ManipulationSize {
		return Manipulation{}, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidManipulation, len(b), ManipulationSize)
	}
	var m Manipulation
	copy(m.ID[:], b[:IdentifierSize])
	copy(m.Value[:], b[IdentifierSize:])
	if err := m.Validate(); err != nil {
		return Manipulation{}, err
	}
	return m, nil
}

func (m Manipulation) String() string {
	switch m.Kind() {
	case KindSetRecord:
		return fmt.Sprintf("%s = %#016x", m.ID, m.Value.SetEntry())
	case KindSlotRaceRecord:
		f := m.Value.SlotRaceFlags()
		return fmt.Sprintf("%s = material:%t model:%t", m.ID, f.Material, f.Model)
	case KindVariantRecord:
		e := m.Value.VariantEntry()
		return fmt.Sprintf("%s = mat:%d decal:%d attr:%#x sound:%d vfx:%d anim:%d",
			m.ID, e.MaterialID, e.DecalID, e.AttributeMask, e.SoundID, e.VfxID, e.MaterialAnimationID)
	case KindBodyPartRecord:
		return fmt.Sprintf("%s = %d", m.ID, m.Value.Skeleton())
	case KindGlobalRecord:
		return fmt.Sprintf("%s = %g", m.ID, m.Value.Float())
	default:
		return m.ID.String()
	}
}

// SortManipulations orders manipulations by identifier
func SortManipulations(ms []Manipulation) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID.Less(ms[j].ID) })
}
