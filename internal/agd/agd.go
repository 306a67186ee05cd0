// Package agd reads and writes subject metadata in the database-backed
// recording container: a SQLite file whose settings table stores every
// value as text, keyed by settingName.
package agd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/actimeta/internal/fieldmap"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

const settingsTable = "settings"

// Setting is one row of the settings table.
type Setting struct {
	ID    int64
	Name  string
	Value string
}

// Settings is the settings table in rowid order.
type Settings []Setting

// Lookup returns the value of the first row named name.
func (s Settings) Lookup(name string) (string, bool) {
	if i := s.index(name); i >= 0 {
		return s[i].Value, true
	}
	return "", false
}

func (s Settings) index(name string) int {
	for i, row := range s {
		if row.Name == name {
			return i
		}
	}
	return -1
}

// Outcome reports which physical keys a write touched.
type Outcome struct {
	Written []string
	Skipped []string
}

// Mutator applies resolved field updates to an .agd file.
type Mutator struct {
	log *zap.Logger
}

// NewMutator returns a Mutator that logs to log. A nil logger discards
// output.
func NewMutator(log *zap.Logger) *Mutator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mutator{log: log}
}

// Write applies updates in a single transaction. Each update changes the
// first row whose settingName equals its key; keys with no row are skipped,
// never inserted. If any update fails the transaction is rolled back and no
// change is visible.
func (m *Mutator) Write(path string, updates []fieldmap.Update) (out Outcome, err error) {
	db, err := open(path)
	if err != nil {
		return Outcome{}, err
	}
	defer func() { err = errs.Combine(err, closeDB(db)) }()

	tx, err := db.Begin()
	if err != nil {
		return Outcome{}, types.IOError.Wrap(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := readSettings(tx)
	if err != nil {
		return Outcome{}, err
	}

	stmt, err := tx.Prepare("UPDATE settings SET settingValue = ? WHERE rowid = ?")
	if err != nil {
		return Outcome{}, types.IOError.Wrap(fmt.Errorf("prepare update: %w", err))
	}
	defer stmt.Close()

	log := m.log.With(zap.String("file", path))
	for _, u := range updates {
		i := rows.index(u.Key)
		if i < 0 {
			log.Debug("no settings row for key; skipped", zap.String("field", u.Field), zap.String("key", u.Key))
			out.Skipped = append(out.Skipped, u.Key)
			continue
		}
		if _, err := stmt.Exec(u.Value, rows[i].ID); err != nil {
			return Outcome{}, types.IOError.Wrap(fmt.Errorf("update %s (%s): %w", u.Field, u.Key, err))
		}
		log.Debug("setting updated", zap.String("key", u.Key), zap.Int64("rowid", rows[i].ID))
		out.Written = append(out.Written, u.Key)
	}

	if err := tx.Commit(); err != nil {
		return Outcome{}, types.IOError.Wrap(fmt.Errorf("commit: %w", err))
	}
	log.Debug("settings committed", zap.Int("written", len(out.Written)))
	return out, nil
}

// ReadSettings returns every row of the settings table.
func ReadSettings(path string) (s Settings, err error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { err = errs.Combine(err, closeDB(db)) }()
	return readSettings(db)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func readSettings(q queryer) (Settings, error) {
	var name string
	err := q.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", settingsTable,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, types.ContainerFormatError.Wrap(types.ErrSettingsTableMissing)
	}
	if err != nil {
		// The driver reports a non-SQLite file on the first query.
		return nil, types.ContainerFormatError.Wrap(fmt.Errorf("read schema: %w", err))
	}

	rows, err := q.Query("SELECT rowid, settingName, settingValue FROM settings ORDER BY rowid")
	if err != nil {
		return nil, types.ContainerFormatError.Wrap(fmt.Errorf("query settings: %w", err))
	}
	defer rows.Close()

	var out Settings
	for rows.Next() {
		var (
			id          int64
			name, value sql.NullString
		)
		if err := rows.Scan(&id, &name, &value); err != nil {
			return nil, types.ContainerFormatError.Wrap(fmt.Errorf("scan setting: %w", err))
		}
		out = append(out, Setting{ID: id, Name: name.String, Value: value.String})
	}
	if err := rows.Err(); err != nil {
		return nil, types.ContainerFormatError.Wrap(fmt.Errorf("iterate settings: %w", err))
	}
	return out, nil
}

// open refuses to create a database: the container must already exist.
func open(path string) (*sql.DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.IOError.Wrap(fmt.Errorf("stat %s: %w", path, err))
	}
	if !info.Mode().IsRegular() {
		return nil, types.IOError.New("%s is not a regular file", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.IOError.Wrap(fmt.Errorf("open %s: %w", path, err))
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func closeDB(db *sql.DB) error {
	if err := db.Close(); err != nil {
		return types.IOError.Wrap(fmt.Errorf("close database: %w", err))
	}
	return nil
}
