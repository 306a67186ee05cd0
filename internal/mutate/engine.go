// Package mutate is the entry point of the metadata mutation engine. It
// resolves a logical record into physical writes, performs them inside a
// backup scope, and reports the outcome as a Result instead of an error.
package mutate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/actimeta/internal/agd"
	"github.com/mesh-intelligence/actimeta/internal/backup"
	"github.com/mesh-intelligence/actimeta/internal/fieldmap"
	"github.com/mesh-intelligence/actimeta/internal/gt3x"
	"github.com/mesh-intelligence/actimeta/internal/infotext"
	"github.com/mesh-intelligence/actimeta/internal/validate"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// Stages named in failure messages.
const (
	StageResolve = "resolve"
	StageBackup  = "backup"
	StageWrite   = "write"
	StageRepack  = "repack"
)

// Result is the outcome of one mutation. OK and Message are the values
// callers are expected to check; Err carries the classified error for
// callers that branch on the error class.
type Result struct {
	OK      bool
	Message string
	Err     error
	Stage   string

	Written  []string
	Skipped  []string
	Unplaced []string
}

// Engine mutates and validates recording containers.
type Engine struct {
	fm        *fieldmap.FieldMap
	log       *zap.Logger
	guard     *backup.Guard
	agd       *agd.Mutator
	patcher   *infotext.Patcher
	validator *validate.Validator
}

// New builds an Engine from cfg. A nil logger discards output.
func New(cfg types.Config, log *zap.Logger) (*Engine, error) {
	fm, err := fieldmap.New(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		fm:        fm,
		log:       log,
		guard:     backup.NewGuard(log),
		agd:       agd.NewMutator(log),
		patcher:   infotext.NewPatcher(fm),
		validator: validate.New(fm),
	}, nil
}

// FieldMap returns the engine's field map.
func (e *Engine) FieldMap() *fieldmap.FieldMap { return e.fm }

// Mutate dispatches on the file extension.
func (e *Engine) Mutate(path string, rec types.Record) Result {
	kind, err := types.KindFromPath(path)
	if err != nil {
		return e.fail(path, "", StageResolve, err)
	}
	switch kind {
	case types.KindAGD:
		return e.MutateAGD(path, rec)
	default:
		return e.MutateGT3X(path, rec)
	}
}

// MutateAGD writes rec into the settings table of an .agd file. All
// updates commit together or not at all.
func (e *Engine) MutateAGD(path string, rec types.Record) Result {
	log := e.log.With(zap.String("file", path), zap.String("kind", string(types.KindAGD)))

	updates, err := e.fm.Resolve(types.KindAGD, rec)
	if err != nil {
		return e.fail(path, types.KindAGD, StageResolve, err)
	}
	log.Debug("resolved updates", zap.Int("count", len(updates)))

	var out agd.Outcome
	stage := StageBackup
	err = e.guard.Run(path, func() error {
		stage = StageWrite
		var werr error
		out, werr = e.agd.Write(path, updates)
		return werr
	})
	if err != nil {
		return e.fail(path, types.KindAGD, stage, err)
	}

	res := Result{
		OK:      true,
		Written: out.Written,
		Skipped: out.Skipped,
	}
	res.Message = summary(path, res)
	log.Info("metadata updated", zap.Strings("written", out.Written), zap.Strings("skipped", out.Skipped))
	return res
}

// MutateGT3X patches info.txt inside a .gt3x archive. Every other entry is
// carried over unchanged.
func (e *Engine) MutateGT3X(path string, rec types.Record) Result {
	log := e.log.With(zap.String("file", path), zap.String("kind", string(types.KindGT3X)))

	updates, err := e.fm.Resolve(types.KindGT3X, rec)
	if err != nil {
		return e.fail(path, types.KindGT3X, StageResolve, err)
	}
	log.Debug("resolved updates", zap.Int("count", len(updates)))

	var patched infotext.Result
	stage := StageBackup
	err = e.guard.Run(path, func() error {
		stage = StageRepack
		return gt3x.Rewrite(path, gt3x.InfoEntry, func(content []byte) ([]byte, error) {
			doc := infotext.Parse(string(content))
			patched = e.patcher.Patch(doc, updates)
			return []byte(doc.String()), nil
		})
	})
	if err != nil {
		return e.fail(path, types.KindGT3X, stage, err)
	}

	if len(patched.Unplaced) > 0 {
		log.Warn("fields absent and without anchor; not written", zap.Strings("keys", patched.Unplaced))
	}
	res := Result{
		OK:       true,
		Written:  append(append([]string(nil), patched.Updated...), patched.Inserted...),
		Unplaced: patched.Unplaced,
	}
	res.Message = summary(path, res)
	log.Info("metadata updated",
		zap.Strings("updated", patched.Updated),
		zap.Strings("inserted", patched.Inserted),
		zap.Strings("unplaced", patched.Unplaced))
	return res
}

// Validate re-reads path and compares it against expected.
func (e *Engine) Validate(path string, expected types.Record) (bool, validate.Report) {
	rep := e.validator.Check(path, expected)
	log := e.log.With(zap.String("file", path))
	switch {
	case rep.Err != nil:
		log.Error("validation could not read container", zap.Error(rep.Err))
	case len(rep.Mismatches) > 0:
		for _, m := range rep.Mismatches {
			log.Warn("validation mismatch",
				zap.String("field", m.Field),
				zap.String("key", m.Key),
				zap.String("expected", m.Expected),
				zap.String("actual", m.Actual))
		}
	default:
		log.Debug("validation passed", zap.Int("fields", len(rep.Checked)))
	}
	return rep.OK(), rep
}

func (e *Engine) fail(path string, kind types.ContainerKind, stage string, err error) Result {
	e.log.Error("mutation failed",
		zap.String("file", path),
		zap.String("kind", string(kind)),
		zap.String("stage", stage),
		zap.Error(err))
	return Result{
		OK:      false,
		Message: fmt.Sprintf("%s failed for %s: %v", stage, path, err),
		Err:     err,
		Stage:   stage,
	}
}

func summary(path string, res Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "updated %s: %d fields written", path, len(res.Written))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&b, ", skipped (no row): %s", strings.Join(res.Skipped, ", "))
	}
	if len(res.Unplaced) > 0 {
		fmt.Fprintf(&b, ", not placed (no anchor): %s", strings.Join(res.Unplaced, ", "))
	}
	return b.String()
}
