package meta

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// manipulationYAML is the on-disk form of a Manipulation in option files
type manipulationYAML struct {
	Type string `yaml:"type"`

	SetID       uint16 `yaml:"set_id,omitempty"`
	Slot        string `yaml:"slot,omitempty"`
	Race        uint16 `yaml:"race,omitempty"`
	Object      string `yaml:"object,omitempty"`
	PrimaryID   uint16 `yaml:"primary_id,omitempty"`
	SecondaryID uint16 `yaml:"secondary_id,omitempty"`
	Variant     uint8  `yaml:"variant,omitempty"`
	Part        string `yaml:"part,omitempty"`
	SubRace     uint8  `yaml:"sub_race,omitempty"`
	Attribute   uint8  `yaml:"attribute,omitempty"`

	Entry               *uint64  `yaml:"entry,omitempty"`
	Material            *bool    `yaml:"material,omitempty"`
	Model               *bool    `yaml:"model,omitempty"`
	MaterialID          uint8    `yaml:"material_id,omitempty"`
	DecalID             uint8    `yaml:"decal_id,omitempty"`
	AttributeMask       uint16   `yaml:"attribute_mask,omitempty"`
	SoundID             uint8    `yaml:"sound_id,omitempty"`
	VfxID               uint8    `yaml:"vfx_id,omitempty"`
	MaterialAnimationID uint8    `yaml:"material_animation_id,omitempty"`
	Skeleton            *uint16  `yaml:"skeleton,omitempty"`
	Scale               *float32 `yaml:"scale,omitempty"`
}

// MarshalYAML implements yaml.Marshaler
func (m Manipulation) MarshalYAML() (interface{}, error) {
	out := manipulationYAML{Type: m.Kind().String()}
	switch m.Kind() {
	case KindSetRecord:
		k, _ := m.ID.SetKey()
		entry := m.Value.SetEntry()
		out.SetID, out.Slot, out.Entry = k.SetID, k.Slot.String(), &entry
	case KindSlotRaceRecord:
		k, _ := m.ID.SlotRaceKey()
		f := m.Value.SlotRaceFlags()
		out.SetID, out.Race, out.Slot = k.SetID, uint16(k.Race), k.Slot.String()
		out.Material, out.Model = &f.Material, &f.Model
	case KindVariantRecord:
		k, _ := m.ID.VariantKey()
		e := m.Value.VariantEntry()
		out.Object, out.PrimaryID, out.SecondaryID, out.Variant = k.Object.String(), k.PrimaryID, k.SecondaryID, k.Variant
		if k.Object.slotted() {
			out.Slot = k.Slot.String()
		}
		out.MaterialID, out.DecalID, out.AttributeMask = e.MaterialID, e.DecalID, e.AttributeMask
		out.SoundID, out.VfxID, out.MaterialAnimationID = e.SoundID, e.VfxID, e.MaterialAnimationID
	case KindBodyPartRecord:
		k, _ := m.ID.BodyPartKey()
		skel := m.Value.Skeleton()
		out.Part, out.Race, out.SetID, out.Skeleton = k.Part.String(), uint16(k.Race), k.SetID, &skel
	case KindGlobalRecord:
		k, _ := m.ID.GlobalKey()
		scale := m.Value.Float()
		out.SubRace, out.Attribute, out.Scale = k.SubRace, k.Attribute, &scale
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidManipulation, m.ID[0])
	}
	return out, nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (m *Manipulation) UnmarshalYAML(node *yaml.Node) error {
	var in manipulationYAML
	if err := node.Decode(&in); err != nil {
		return err
	}

	kind, err := ParseKind(in.Type)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	var out Manipulation
	switch kind {
	case KindSetRecord:
		slot, err := ParseEquipSlot(in.Slot)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		var entry uint64
		if in.Entry != nil {
			entry = *in.Entry
		}
		out = Manipulation{ID: SetKey{SetID: in.SetID, Slot: slot}.Identifier(), Value: SetValue(entry)}
	case KindSlotRaceRecord:
		slot, err := ParseEquipSlot(in.Slot)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		out = NewSlotRace(SlotRaceKey{SetID: in.SetID, Race: GenderRace(in.Race), Slot: slot},
			SlotRaceFlags{Material: in.Material != nil && *in.Material, Model: in.Model != nil && *in.Model})
	case KindVariantRecord:
		obj, err := ParseObjectType(in.Object)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		var slot EquipSlot
		if in.Slot != "" {
			if slot, err = ParseEquipSlot(in.Slot); err != nil {
				return fmt.Errorf("line %d: %w", node.Line, err)
			}
		}
		out = NewVariant(
			VariantKey{Object: obj, PrimaryID: in.PrimaryID, SecondaryID: in.SecondaryID, Variant: in.Variant, Slot: slot},
			VariantEntry{
				MaterialID:          in.MaterialID,
				DecalID:             in.DecalID,
				AttributeMask:       in.AttributeMask,
				SoundID:             in.SoundID,
				VfxID:               in.VfxID,
				MaterialAnimationID: in.MaterialAnimationID,
			})
	case KindBodyPartRecord:
		part, err := ParseBodyPart(in.Part)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		var skel uint16
		if in.Skeleton != nil {
			skel = *in.Skeleton
		}
		out = NewBodyPart(BodyPartKey{Part: part, Race: GenderRace(in.Race), SetID: in.SetID}, skel)
	case KindGlobalRecord:
		var scale float32
		if in.Scale != nil {
			scale = *in.Scale
		}
		out = NewGlobal(GlobalKey{SubRace: in.SubRace, Attribute: in.Attribute}, scale)
	}

	if err := out.Validate(); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = out
	return nil
}
