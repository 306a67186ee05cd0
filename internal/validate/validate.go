// Package validate re-reads a container after mutation and checks that
// every requested logical field decodes to the expected physical value.
package validate

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/actimeta/internal/agd"
	"github.com/mesh-intelligence/actimeta/internal/fieldmap"
	"github.com/mesh-intelligence/actimeta/internal/gt3x"
	"github.com/mesh-intelligence/actimeta/internal/infotext"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// Mismatch describes one field whose stored value differs from the
// expected one. Present is false when the physical key does not exist.
type Mismatch struct {
	Field    string
	Key      string
	Expected string
	Actual   string
	Present  bool
}

func (m Mismatch) String() string {
	if !m.Present {
		return fmt.Sprintf("%s (%s): expected %q, key absent", m.Field, m.Key, m.Expected)
	}
	return fmt.Sprintf("%s (%s): expected %q, got %q", m.Field, m.Key, m.Expected, m.Actual)
}

// Report is the outcome of one validation.
type Report struct {
	Kind       types.ContainerKind
	Checked    []string
	Mismatches []Mismatch
	// Err is set when the container could not be read at all.
	Err error
}

// OK reports whether the container was read and every checked field matched.
func (r Report) OK() bool { return r.Err == nil && len(r.Mismatches) == 0 }

func (r Report) String() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if len(r.Mismatches) == 0 {
		return fmt.Sprintf("%d fields match", len(r.Checked))
	}
	parts := make([]string, len(r.Mismatches))
	for i, m := range r.Mismatches {
		parts[i] = m.String()
	}
	return "mismatch: " + strings.Join(parts, "; ")
}

// Validator compares stored metadata against an expected record.
type Validator struct {
	fm *fieldmap.FieldMap
}

// New returns a Validator using fm to locate and encode fields.
func New(fm *fieldmap.FieldMap) *Validator {
	return &Validator{fm: fm}
}

// Check validates the container at path, inferring its kind from the
// extension.
func (v *Validator) Check(path string, expected types.Record) Report {
	kind, err := types.KindFromPath(path)
	if err != nil {
		return Report{Err: err}
	}
	return v.CheckKind(path, kind, expected)
}

// CheckKind validates the container at path as the given kind.
func (v *Validator) CheckKind(path string, kind types.ContainerKind, expected types.Record) Report {
	rep := Report{Kind: kind}
	want, err := v.fm.Expect(kind, expected)
	if err != nil {
		rep.Err = err
		return rep
	}

	lookup, err := v.reader(path, kind)
	if err != nil {
		rep.Err = err
		return rep
	}

	for _, u := range want {
		rep.Checked = append(rep.Checked, u.Field)
		actual, ok := lookup(u.Key)
		if ok && actual == u.Value {
			continue
		}
		rep.Mismatches = append(rep.Mismatches, Mismatch{
			Field:    u.Field,
			Key:      u.Key,
			Expected: u.Value,
			Actual:   actual,
			Present:  ok,
		})
	}
	return rep
}

// reader loads the container once and returns a first-match lookup over
// its physical keys.
func (v *Validator) reader(path string, kind types.ContainerKind) (func(string) (string, bool), error) {
	switch kind {
	case types.KindAGD:
		settings, err := agd.ReadSettings(path)
		if err != nil {
			return nil, err
		}
		return settings.Lookup, nil
	case types.KindGT3X:
		data, err := gt3x.ReadEntry(path, gt3x.InfoEntry)
		if err != nil {
			return nil, err
		}
		return infotext.Parse(string(data)).Get, nil
	}
	return nil, types.ContainerFormatError.Wrap(fmt.Errorf("%w: %q", types.ErrUnknownKind, kind))
}
