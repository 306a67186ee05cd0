// Package testutil builds recording containers for tests.
package testutil

import (
	"crypto/rand"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// Setting is a settingName/settingValue row.
type Setting struct {
	Name  string
	Value string
}

// DefaultSettings mirrors the settings a freshly downloaded .agd carries
// before any subject data is entered.
func DefaultSettings() []Setting {
	return []Setting{
		{"softwarename", "ActiLife"},
		{"softwareversion", "6.13.4"},
		{"deviceserial", "MOS2A50130052"},
		{"epochlength", "60"},
		{"subjectname", ""},
		{"sex", ""},
		{"height", ""},
		{"mass", ""},
		{"age", ""},
		{"dateOfBirth", "0"},
		{"side", ""},
		{"dominance", ""},
		{"limb", ""},
	}
}

// NewAGD writes an .agd file containing settings and a small data table.
func NewAGD(t *testing.T, dir string, settings []Setting) string {
	t.Helper()
	path := filepath.Join(dir, "MOS2A50130052 (2025-12-02)60sec.agd")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE settings (
		settingID INTEGER PRIMARY KEY AUTOINCREMENT,
		settingName VARCHAR(64) NOT NULL,
		settingValue VARCHAR(64)
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE data (dataTimestamp INTEGER PRIMARY KEY, axis1 INTEGER, axis2 INTEGER, axis3 INTEGER)`)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err = db.Exec("INSERT INTO data VALUES (?, ?, ?, ?)", 638687520000000000+int64(i)*600000000, i, i*2, i*3)
		require.NoError(t, err)
	}
	for _, s := range settings {
		_, err = db.Exec("INSERT INTO settings (settingName, settingValue) VALUES (?, ?)", s.Name, s.Value)
		require.NoError(t, err)
	}
	return path
}

// DefaultInfo is an info.txt without subject demographics.
const DefaultInfo = "Serial Number: MOS2A50130052\r\n" +
	"Device Type: wGT3XBT\r\n" +
	"Firmware: 1.9.2\r\n" +
	"Battery Voltage: 4.12\r\n" +
	"Sample Rate: 30\r\n" +
	"Start Date: 638687520000000000\r\n" +
	"Stop Date: 638688384000000000\r\n" +
	"TimeZone: 09:00:00\r\n" +
	"Board Revision: 8\r\n" +
	"Acceleration Scale: 256.0\r\n" +
	"Acceleration Min: -8.0\r\n" +
	"Acceleration Max: 8.0\r\n" +
	"Subject Name: \r\n" +
	"Side: \r\n" +
	"Dominance: \r\n" +
	"Limb: \r\n"

// Entry is one archive member.
type Entry struct {
	Name string
	Data []byte
}

// NewGT3X writes a .gt3x archive with the given info.txt and a random
// log.bin of logSize bytes, which it also returns.
func NewGT3X(t *testing.T, dir, info string, logSize int) (string, []byte) {
	t.Helper()
	logData := make([]byte, logSize)
	_, err := rand.Read(logData)
	require.NoError(t, err)
	path := NewArchive(t, dir, Entry{"log.bin", logData}, Entry{"info.txt", []byte(info)})
	return path, logData
}

// NewArchive writes a .gt3x archive holding exactly entries.
func NewArchive(t *testing.T, dir string, entries ...Entry) string {
	t.Helper()
	path := filepath.Join(dir, "MOS2A50130052 (2025-12-02).gt3x")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	modified := time.Date(2025, time.December, 2, 9, 0, 0, 0, time.UTC)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: modified})
		require.NoError(t, err)
		_, err = w.Write(e.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

// ReadFile returns the bytes of path.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// Siblings lists the other entries in path's directory.
func Siblings(t *testing.T, path string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if e.Name() != filepath.Base(path) {
			out = append(out, e.Name())
		}
	}
	return out
}
