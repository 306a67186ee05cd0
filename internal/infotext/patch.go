package infotext

import (
	"github.com/mesh-intelligence/actimeta/internal/fieldmap"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// demographicFields are inserted as a group, in this order, after the
// demographics anchor.
var demographicFields = []string{
	types.FieldSex,
	types.FieldHeight,
	types.FieldMass,
	types.FieldAge,
}

// Result reports what a patch did, by physical key.
type Result struct {
	Updated  []string
	Inserted []string
	// Unplaced lists keys that were absent from the document and had no
	// anchor to follow. They were not written.
	Unplaced []string
}

// Patcher applies resolved field updates to a Document.
type Patcher struct {
	fm *fieldmap.FieldMap
}

// NewPatcher returns a Patcher that takes its anchors from fm.
func NewPatcher(fm *fieldmap.FieldMap) *Patcher {
	return &Patcher{fm: fm}
}

// Patch updates existing keys in place, then inserts absent keys after
// their anchors: sex, height, mass and age after the demographics anchor,
// date of birth after the dominance anchor. A missing anchor means the
// fields tied to it are skipped and reported in Result.Unplaced.
func (p *Patcher) Patch(doc *Document, updates []fieldmap.Update) Result {
	var res Result
	absent := make(map[string]fieldmap.Update)
	for _, u := range updates {
		if doc.Set(u.Key, u.Value) {
			res.Updated = append(res.Updated, u.Key)
			continue
		}
		absent[u.Field] = u
	}

	anchors := p.fm.Anchors()

	var group [][2]string
	for _, field := range demographicFields {
		if u, ok := absent[field]; ok {
			group = append(group, [2]string{u.Key, u.Value})
		}
	}
	if len(group) > 0 && doc.InsertAfter(anchors.Demographics, group...) {
		for _, g := range group {
			res.Inserted = append(res.Inserted, g[0])
		}
		for _, field := range demographicFields {
			delete(absent, field)
		}
	}

	if u, ok := absent[types.FieldDateOfBirth]; ok && doc.InsertAfter(anchors.DateOfBirth, [2]string{u.Key, u.Value}) {
		res.Inserted = append(res.Inserted, u.Key)
		delete(absent, types.FieldDateOfBirth)
	}

	for _, u := range updates {
		if _, ok := absent[u.Field]; ok {
			res.Unplaced = append(res.Unplaced, u.Key)
		}
	}
	return res
}
