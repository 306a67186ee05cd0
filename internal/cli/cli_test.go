package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/actimeta/internal/agd"
	"github.com/mesh-intelligence/actimeta/internal/fieldmap"
	"github.com/mesh-intelligence/actimeta/internal/testutil"
	"github.com/mesh-intelligence/actimeta/pkg/types"
)

// run executes the root command in-process with an isolated config
// environment and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ACTIMETA_CONFIG", "")

	cmd := NewRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "actimeta v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestTicks(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"date to ticks", "1999-11-01", "630770112000000000\n"},
		{"ticks to date", "630770112000000000", "1999-11-01T00:00:00Z\n"},
		{"slash date", "1999/11/01", "630770112000000000\n"},
		{"compact date", "19991101", "630770112000000000\n"},
		{"eight digits that are not a date", "19991399", "0001-01-01T00:00:01.999139Z\n"},
		{"small tick count", "10000000", "0001-01-01T00:00:01Z\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "ticks", tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, err := run(t, "ticks", "not a date")
	require.Error(t, err)
	assert.True(t, types.EncodingError.Has(err))
}

func TestMutateAGD(t *testing.T) {
	path := testutil.NewAGD(t, t.TempDir(), testutil.DefaultSettings())

	out, err := run(t, "mutate", path,
		"--name", "P001", "--sex", "Female", "--height", "162", "--mass", "55",
		"--age", "30", "--dob", "1999-11-01", "--hand", "오", "--validate")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ok   "), out)
	assert.NotContains(t, out, "FAIL")

	settings, err := agd.ReadSettings(path)
	require.NoError(t, err)
	want := map[string]string{
		"subjectname": "P001",
		"sex":         "Female",
		"height":      "162",
		"mass":        "55",
		"age":         "30",
		"dateOfBirth": "630770112000000000",
		"side":        "Left",
		"dominance":   "Dominant",
		"limb":        "Waist",
	}
	for key, v := range want {
		got, ok := settings.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, v, got, key)
	}

	out, err = run(t, "validate", path, "--name", "P001", "--hand", "오", "--side", "Left")
	require.NoError(t, err)
	assert.Contains(t, out, "ok   ")
}

func TestMutateGT3X(t *testing.T) {
	path, _ := testutil.NewGT3X(t, t.TempDir(), testutil.DefaultInfo, 4096)

	_, err := run(t, "mutate", path, "--sex", "Male", "--age", "41", "--hand", "왼")
	require.NoError(t, err)

	out, err := run(t, "inspect", "--json", path)
	require.NoError(t, err)
	var ins inspection
	require.NoError(t, json.Unmarshal([]byte(out), &ins))
	assert.Equal(t, types.KindGT3X, ins.Kind)
	assert.Equal(t, []string{"log.bin", "info.txt"}, ins.Entries)

	got := map[string]string{}
	for _, f := range ins.Fields {
		got[f.Key] = f.Value
	}
	assert.Equal(t, "Male", got["Sex"])
	assert.Equal(t, "41", got["Age"])
	assert.Equal(t, "Right", got["Side"])
	assert.Equal(t, "Non-Dominant", got["Dominance"])

	_, err = run(t, "validate", path, "--sex", "Female")
	require.ErrorIs(t, err, errFailed)
	assert.Equal(t, exitUserError, exitCode(err))

}

func TestMutateBadInteger(t *testing.T) {
	path := testutil.NewAGD(t, t.TempDir(), testutil.DefaultSettings())
	before := testutil.ReadFile(t, path)

	_, err := run(t, "mutate", path, "--height", "tall")
	require.Error(t, err)
	assert.True(t, types.EncodingError.Has(err))
	assert.True(t, errors.Is(err, types.ErrNotInteger))
	assert.Equal(t, before, testutil.ReadFile(t, path))
}

func TestMutateContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "broken.agd")
	require.NoError(t, os.WriteFile(bogus, []byte("not sqlite"), 0o644))
	good := testutil.NewAGD(t, dir, testutil.DefaultSettings())

	out, err := run(t, "mutate", bogus, good, "--name", "P002")
	require.ErrorIs(t, err, errFailed)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "FAIL "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ok   "), lines[1])

	settings, err := agd.ReadSettings(good)
	require.NoError(t, err)
	name, _ := settings.Lookup("subjectname")
	assert.Equal(t, "P002", name)
}

func TestInspectAGDDecodesDateOfBirth(t *testing.T) {
	settings := testutil.DefaultSettings()
	for i := range settings {
		if settings[i].Name == "dateOfBirth" {
			settings[i].Value = "630770112000000000"
		}
	}
	path := testutil.NewAGD(t, t.TempDir(), settings)

	out, err := run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dateOfBirth: 630770112000000000 (1999-11-01T00:00:00Z)")
	assert.Contains(t, out, "deviceserial: MOS2A50130052")
}

func TestConfig(t *testing.T) {
	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "# source: (built-in)")
	assert.Contains(t, out, "handedness_mapping:")
	assert.Contains(t, out, "Acceleration Max")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "actimeta.yaml")

	out, err := run(t, "config", "--init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.Equal(t, fieldmap.DefaultDocument(), testutil.ReadFile(t, path))

	_, err = run(t, "config", "--init", "--config", path)
	require.Error(t, err)
	assert.Equal(t, exitSysError, exitCode(err))

	_, err = run(t, "config", "--init", "--force", "--config", path)
	require.NoError(t, err)

	out, err = run(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# source: "+path)
}

func TestBadConfigIsConfigurationError(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("metadata:\n  defaults:\n    limb: Waist\n"), 0o644))
	path := testutil.NewAGD(t, t.TempDir(), testutil.DefaultSettings())

	_, err := run(t, "mutate", path, "--name", "x", "--config", cfg)
	require.Error(t, err)
	assert.True(t, types.ConfigurationError.Has(err))
	assert.Equal(t, exitSysError, exitCode(err))
}

func TestConfigFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "env.yaml")
	doc := strings.Replace(string(fieldmap.DefaultDocument()), "limb: Waist", "limb: Wrist", 1)
	require.NoError(t, os.WriteFile(cfg, []byte(doc), 0o644))
	path := testutil.NewAGD(t, dir, testutil.DefaultSettings())

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ACTIMETA_CONFIG", cfg)
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"mutate", path, "--name", "P003"})
	require.NoError(t, cmd.Execute())

	settings, err := agd.ReadSettings(path)
	require.NoError(t, err)
	limb, _ := settings.Lookup("limb")
	assert.Equal(t, "Wrist", limb)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitSysError, exitCode(types.ConfigurationError.New("x")))
	assert.Equal(t, exitUserError, exitCode(errFailed))
	assert.Equal(t, exitUserError, exitCode(types.EncodingError.New("x")))
}
