package agd

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/actimeta/internal/fieldmap"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// newContainer builds a minimal .agd file with the given settings rows.
func newContainer(t *testing.T, rows ...[2]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.agd")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE settings (
		settingID INTEGER PRIMARY KEY AUTOINCREMENT,
		settingName VARCHAR(64) NOT NULL,
		settingValue VARCHAR(64)
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE data (dataTimestamp INTEGER PRIMARY KEY, axis1 INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO data VALUES (638687520000000000, 12), (638687520600000000, 7)`)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := db.Exec("INSERT INTO settings (settingName, settingValue) VALUES (?, ?)", r[0], r[1])
		require.NoError(t, err)
	}
	return path
}

func TestSettingsLookup_FirstMatchWins(t *testing.T) {
	s := Settings{{ID: 1, Name: "sex", Value: "Male"}, {ID: 2, Name: "sex", Value: "Female"}}
	v, ok := s.Lookup("sex")
	assert.True(t, ok)
	assert.Equal(t, "Male", v)
	_, ok = s.Lookup("age")
	assert.False(t, ok)
}

func TestWrite(t *testing.T) {
	path := newContainer(t,
		[2]string{"subjectname", ""},
		[2]string{"side", ""},
		[2]string{"dominance", ""},
		[2]string{"limb", "Wrist"},
	)
	m := NewMutator(zaptest.NewLogger(t))

	out, err := m.Write(path, []fieldmap.Update{
		{Field: types.FieldSubjectName, Key: "subjectname", Value: "Test Subject"},
		{Field: types.FieldSex, Key: "sex", Value: "Male"},
		{Field: types.FieldSide, Key: "side", Value: "Left"},
		{Field: types.FieldDominance, Key: "dominance", Value: "Dominant"},
		{Field: types.FieldLimb, Key: "limb", Value: "Waist"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"subjectname", "side", "dominance", "limb"}, out.Written)
	assert.Equal(t, []string{"sex"}, out.Skipped)

	got, err := ReadSettings(path)
	require.NoError(t, err)
	require.Len(t, got, 4, "missing keys must not be inserted")
	for name, want := range map[string]string{
		"subjectname": "Test Subject",
		"side":        "Left",
		"dominance":   "Dominant",
		"limb":        "Waist",
	} {
		v, ok := got.Lookup(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, v, name)
	}
}

func TestWrite_LogsSkippedKeys(t *testing.T) {
	path := newContainer(t, [2]string{"subjectname", ""})
	core, logs := observer.New(zap.DebugLevel)

	out, err := NewMutator(zap.New(core)).Write(path, []fieldmap.Update{
		{Field: types.FieldSubjectName, Key: "subjectname", Value: "P001"},
		{Field: types.FieldLimb, Key: "limb", Value: "Waist"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"limb"}, out.Skipped)

	skipped := logs.FilterMessage("no settings row for key; skipped").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "limb", skipped[0].ContextMap()["key"])
	assert.Equal(t, path, skipped[0].ContextMap()["file"])
	assert.Equal(t, 1, logs.FilterMessage("settings committed").Len())
}

func TestNewMutator_NilLogger(t *testing.T) {
	path := newContainer(t, [2]string{"age", "1"})
	_, err := NewMutator(nil).Write(path, []fieldmap.Update{{Field: types.FieldAge, Key: "age", Value: "2"}})
	require.NoError(t, err)
}

func TestWrite_OnlyFirstDuplicateUpdated(t *testing.T) {
	path := newContainer(t, [2]string{"age", "1"}, [2]string{"age", "2"})

	_, err := NewMutator(zaptest.NewLogger(t)).Write(path, []fieldmap.Update{{Field: types.FieldAge, Key: "age", Value: "26"}})
	require.NoError(t, err)

	got, err := ReadSettings(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "26", got[0].Value)
	assert.Equal(t, "2", got[1].Value)
}

func TestWrite_FailureRollsBack(t *testing.T) {
	path := newContainer(t,
		[2]string{"subjectname", "Before"},
		[2]string{"sex", "Female"},
	)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TRIGGER fail_sex BEFORE UPDATE ON settings
		WHEN NEW.settingName = 'sex'
		BEGIN SELECT RAISE(ABORT, 'simulated write fault'); END`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewMutator(zaptest.NewLogger(t)).Write(path, []fieldmap.Update{
		{Field: types.FieldSubjectName, Key: "subjectname", Value: "After"},
		{Field: types.FieldSex, Key: "sex", Value: "Male"},
	})
	require.Error(t, err)
	assert.True(t, types.IOError.Has(err))
	assert.Contains(t, err.Error(), "sex")

	got, err := ReadSettings(path)
	require.NoError(t, err)
	v, _ := got.Lookup("subjectname")
	assert.Equal(t, "Before", v, "first update must be rolled back")
}

func TestWrite_Idempotent(t *testing.T) {
	path := newContainer(t, [2]string{"subjectname", ""}, [2]string{"mass", "0"})
	updates := []fieldmap.Update{
		{Field: types.FieldSubjectName, Key: "subjectname", Value: "Test Subject"},
		{Field: types.FieldMass, Key: "mass", Value: "70"},
	}

	_, err := NewMutator(zaptest.NewLogger(t)).Write(path, updates)
	require.NoError(t, err)
	once, err := ReadSettings(path)
	require.NoError(t, err)

	_, err = NewMutator(zaptest.NewLogger(t)).Write(path, updates)
	require.NoError(t, err)
	twice, err := ReadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestReadSettings_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadSettings(filepath.Join(t.TempDir(), "missing.agd"))
		assert.True(t, types.IOError.Has(err))
	})

	t.Run("not a database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "junk.agd")
		require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not sqlite "), 200), 0o644))
		_, err := ReadSettings(path)
		assert.True(t, types.ContainerFormatError.Has(err), "got %v", err)
	})

	t.Run("no settings table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.agd")
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec("CREATE TABLE other (x INTEGER)")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		_, err = ReadSettings(path)
		assert.ErrorIs(t, err, types.ErrSettingsTableMissing)
		assert.True(t, types.ContainerFormatError.Has(err))
	})
}
