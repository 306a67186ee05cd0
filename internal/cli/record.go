package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// recordFlags collects a types.Record from command-line flags. Only flags
// the user actually set end up in the record.
type recordFlags struct {
	name, sex                string
	height, mass, age        string
	dob, dobTicks            string
	hand, limb               string
	side, dominance          string
	withExpectationOnlyFlags bool
}

func (f *recordFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "subject name")
	fs.StringVar(&f.sex, "sex", "", "subject sex: Male or Female")
	fs.StringVar(&f.height, "height", "", "height in cm")
	fs.StringVar(&f.mass, "mass", "", "mass in kg")
	fs.StringVar(&f.age, "age", "", "age in years")
	fs.StringVar(&f.dob, "dob", "", "date of birth (2006-01-02 or RFC 3339)")
	fs.StringVar(&f.dobTicks, "dob-ticks", "", "date of birth as raw ticks")
	fs.StringVar(&f.hand, "hand", "", "dominant-hand token from the field map")
	fs.StringVar(&f.limb, "limb", "", "body placement (default from the field map)")
	if f.withExpectationOnlyFlags {
		fs.StringVar(&f.side, "side", "", "expected wrist side")
		fs.StringVar(&f.dominance, "dominance", "", "expected hand dominance")
	}
}

func (f *recordFlags) record(cmd *cobra.Command) (types.Record, error) {
	var rec types.Record
	set := cmd.Flags().Changed

	if set("name") {
		rec.SubjectName = types.Ptr(f.name)
	}
	if set("sex") {
		sex, err := types.ParseSex(f.sex)
		if err != nil {
			return rec, err
		}
		rec.Sex = &sex
	}
	ints := []struct {
		flag, field, raw string
		dst              **int
	}{
		{"height", types.FieldHeight, f.height, &rec.HeightCM},
		{"mass", types.FieldMass, f.mass, &rec.MassKG},
		{"age", types.FieldAge, f.age, &rec.AgeYears},
	}
	for _, in := range ints {
		if !set(in.flag) {
			continue
		}
		n, err := types.ParseInt(in.field, in.raw)
		if err != nil {
			return rec, err
		}
		*in.dst = &n
	}
	if set("dob") {
		t, err := parseDate(f.dob)
		if err != nil {
			return rec, err
		}
		rec.DateOfBirth = &t
	}
	if set("dob-ticks") {
		n, err := types.ParseTicks(types.FieldDateOfBirth, f.dobTicks)
		if err != nil {
			return rec, err
		}
		rec.DateOfBirthTicks = &n
	}
	if set("hand") {
		rec.Handedness = types.Ptr(f.hand)
	}
	if set("limb") {
		rec.BodyPlacement = types.Ptr(f.limb)
	}
	if f.withExpectationOnlyFlags {
		if set("side") {
			rec.Side = types.Ptr(f.side)
		}
		if set("dominance") {
			rec.Dominance = types.Ptr(f.dominance)
		}
	}
	return rec, nil
}

const compactDateLayout = "20060102"

// dateLayouts are tried in order by parseDate.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	compactDateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// parseDate reads a calendar date. Zone offsets are accepted but only the
// wall-clock fields are encoded.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, types.EncodingError.New("date of birth %q: unrecognized date format", raw)
}
