package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Logical field names. These are the keys of the agd_fields and gt3x_fields
// tables in the configuration document.
const (
	FieldSubjectName = "subjectname"
	FieldSex         = "sex"
	FieldHeight      = "height"
	FieldMass        = "mass"
	FieldAge         = "age"
	FieldDateOfBirth = "dateOfBirth"
	FieldSide        = "side"
	FieldDominance   = "dominance"
	FieldLimb        = "limb"
)

// LogicalFields lists every logical field in write order.
var LogicalFields = []string{
	FieldSubjectName,
	FieldSex,
	FieldHeight,
	FieldMass,
	FieldAge,
	FieldDateOfBirth,
	FieldSide,
	FieldDominance,
	FieldLimb,
}

// Sex is the normalized subject sex.
type Sex string

// Accepted sex values.
const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

// Record is the format-independent subject metadata supplied by a caller.
// A nil field is left untouched in the target container; BodyPlacement is the
// exception and falls back to the configured default when nil.
type Record struct {
	SubjectName *string
	Sex         *Sex
	HeightCM    *int
	MassKG      *int
	AgeYears    *int

	// DateOfBirth is encoded as ticks. DateOfBirthTicks is used as-is when
	// DateOfBirth is nil.
	DateOfBirth      *time.Time
	DateOfBirthTicks *int64

	// Handedness is the raw dominant-hand token. It is never stored; it
	// resolves to a side and a dominance value.
	Handedness    *string
	BodyPlacement *string

	// Side and Dominance are expectations consulted only by validation.
	Side      *string
	Dominance *string
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// ParseSex normalizes raw input to Male or Female, case-insensitively.
func ParseSex(raw string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m":
		return SexMale, nil
	case "female", "f":
		return SexFemale, nil
	}
	return "", EncodingError.Wrap(fmt.Errorf("sex %q: %w", raw, ErrUnknownSex))
}

// ParseInt parses an integer-valued field such as height, mass or age.
func ParseInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, EncodingError.Wrap(fmt.Errorf("%s %q: %w", field, raw, ErrNotInteger))
	}
	return n, nil
}

// ParseTicks parses a raw tick count.
func ParseTicks(field, raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, EncodingError.Wrap(fmt.Errorf("%s %q: %w", field, raw, ErrNotInteger))
	}
	return n, nil
}
