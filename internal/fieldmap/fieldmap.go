// Package fieldmap translates logical metadata fields into the physical keys
// and string encodings used by each container kind.
package fieldmap

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/actimeta/internal/ticks"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// Placement is the wrist side and hand dominance derived from a
// handedness token.
type Placement struct {
	Side      string
	Dominance string
}

// Update is one physical write: the logical field it came from, the
// physical key in the target container, and the encoded value.
type Update struct {
	Field string
	Key   string
	Value string
}

// Anchors holds the info.txt keys that inserted fields follow.
type Anchors struct {
	Demographics string
	DateOfBirth  string
}

// FieldMap is the immutable translation table built from a Config.
type FieldMap struct {
	hands       map[string]Placement
	defaultLimb string
	fields      map[types.ContainerKind]map[string]string
	anchors     Anchors
}

// New validates cfg and copies it into a FieldMap. Later changes to cfg do
// not affect the returned value.
func New(cfg types.Config) (*FieldMap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := cfg.Metadata

	hands := make(map[string]Placement, len(m.HandednessMapping))
	for token, p := range m.HandednessMapping {
		hands[token] = Placement{Side: p.Side, Dominance: p.Dominance}
	}

	anchors := Anchors{
		Demographics: m.GT3XAnchors.Demographics,
		DateOfBirth:  m.GT3XAnchors.DateOfBirth,
	}
	if anchors.Demographics == "" {
		anchors.Demographics = types.DefaultDemographicsAnchor
	}
	if anchors.DateOfBirth == "" {
		anchors.DateOfBirth = m.GT3XFields[types.FieldDominance]
	}

	return &FieldMap{
		hands:       hands,
		defaultLimb: m.Defaults.Limb,
		fields: map[types.ContainerKind]map[string]string{
			types.KindAGD:  maps.Clone(m.AGDFields),
			types.KindGT3X: maps.Clone(m.GT3XFields),
		},
		anchors: anchors,
	}, nil
}

// Handedness resolves a raw dominant-hand token. Any token outside the
// configured table is an EncodingError.
func (m *FieldMap) Handedness(token string) (Placement, error) {
	p, ok := m.hands[token]
	if !ok {
		return Placement{}, types.EncodingError.Wrap(fmt.Errorf("handedness %q: %w", token, types.ErrUnknownHandedness))
	}
	return p, nil
}

// Key returns the physical key for a logical field in the given container kind.
func (m *FieldMap) Key(kind types.ContainerKind, field string) (string, bool) {
	key, ok := m.fields[kind][field]
	return key, ok && key != ""
}

// DefaultLimb returns the body placement written when none is supplied.
func (m *FieldMap) DefaultLimb() string { return m.defaultLimb }

// Anchors returns the info.txt insertion anchors.
func (m *FieldMap) Anchors() Anchors { return m.anchors }

// Resolve turns rec into the ordered list of physical writes for kind.
// Nil fields are omitted, except body placement which always produces a
// write. Handedness yields both a side and a dominance write.
func (m *FieldMap) Resolve(kind types.ContainerKind, rec types.Record) ([]Update, error) {
	// Side and dominance only ever come from handedness on the write path.
	rec.Side, rec.Dominance = nil, nil
	values, err := m.encode(rec)
	if err != nil {
		return nil, err
	}
	if _, ok := values[types.FieldLimb]; !ok {
		values[types.FieldLimb] = m.defaultLimb
	}
	return m.updates(kind, values)
}

// Expect turns rec into the physical values a validator should find. Unlike
// Resolve it applies no defaults, and explicit Side and Dominance values
// override those derived from Handedness. Logical fields without a mapping
// are skipped.
func (m *FieldMap) Expect(kind types.ContainerKind, rec types.Record) ([]Update, error) {
	values, err := m.encode(rec)
	if err != nil {
		return nil, err
	}
	return m.updates(kind, values)
}

func (m *FieldMap) encode(rec types.Record) (map[string]string, error) {
	text := []struct {
		field string
		v     *string
	}{
		{types.FieldSubjectName, rec.SubjectName},
		{types.FieldSide, rec.Side},
		{types.FieldDominance, rec.Dominance},
		{types.FieldLimb, rec.BodyPlacement},
	}
	for _, tv := range text {
		if tv.v != nil && strings.ContainsAny(*tv.v, "\r\n") {
			return nil, types.EncodingError.Wrap(fmt.Errorf("%s %q: %w", tv.field, *tv.v, types.ErrLineBreak))
		}
	}

	values := make(map[string]string)
	if rec.SubjectName != nil {
		values[types.FieldSubjectName] = *rec.SubjectName
	}
	if rec.Sex != nil {
		values[types.FieldSex] = string(*rec.Sex)
	}
	if rec.HeightCM != nil {
		values[types.FieldHeight] = strconv.Itoa(*rec.HeightCM)
	}
	if rec.MassKG != nil {
		values[types.FieldMass] = strconv.Itoa(*rec.MassKG)
	}
	if rec.AgeYears != nil {
		values[types.FieldAge] = strconv.Itoa(*rec.AgeYears)
	}
	switch {
	case rec.DateOfBirth != nil:
		values[types.FieldDateOfBirth] = strconv.FormatInt(ticks.FromTime(*rec.DateOfBirth), 10)
	case rec.DateOfBirthTicks != nil:
		values[types.FieldDateOfBirth] = strconv.FormatInt(*rec.DateOfBirthTicks, 10)
	}
	if rec.Handedness != nil {
		p, err := m.Handedness(*rec.Handedness)
		if err != nil {
			return nil, err
		}
		values[types.FieldSide] = p.Side
		values[types.FieldDominance] = p.Dominance
	}
	if rec.Side != nil {
		values[types.FieldSide] = *rec.Side
	}
	if rec.Dominance != nil {
		values[types.FieldDominance] = *rec.Dominance
	}
	if rec.BodyPlacement != nil {
		values[types.FieldLimb] = *rec.BodyPlacement
	}
	return values, nil
}

func (m *FieldMap) updates(kind types.ContainerKind, values map[string]string) ([]Update, error) {
	if _, ok := m.fields[kind]; !ok {
		return nil, types.ContainerFormatError.Wrap(fmt.Errorf("%w: %q", types.ErrUnknownKind, kind))
	}
	var out []Update
	for _, field := range types.LogicalFields {
		v, ok := values[field]
		if !ok {
			continue
		}
		key, ok := m.Key(kind, field)
		if !ok {
			continue
		}
		out = append(out, Update{Field: field, Key: key, Value: v})
	}
	return out, nil
}
