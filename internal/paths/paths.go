// Package paths resolves the location of the field-map configuration file.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// File and directory names.
const (
	AppName         = "actimeta"
	ConfigFileName  = "config.yaml"
	LocalConfigFile = "actimeta.yaml"
	EnvConfigFile   = "ACTIMETA_CONFIG"
	EnvConfigDirXDG = "XDG_CONFIG_HOME"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/actimeta (fallback ~/.config/actimeta)
// macOS:   ~/Library/Application Support/actimeta
// Windows: %APPDATA%/actimeta
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv(EnvConfigDirXDG); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// ResolveConfigFile returns the field-map document to load, following the
// precedence chain: flag > ACTIMETA_CONFIG env > ./actimeta.yaml >
// <DefaultConfigDir>/config.yaml.
//
// An explicit flag or env value is returned even if the file does not exist,
// so that loading reports the error. The two implicit locations are only
// returned when present; if neither exists the result is "" and the caller
// falls back to the embedded default.
func ResolveConfigFile(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigFile); env != "" {
		return filepath.Abs(env)
	}

	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	if local := filepath.Join(cwd, LocalConfigFile); isFile(local) {
		return local, nil
	}

	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	if user := filepath.Join(dir, ConfigFileName); isFile(user) {
		return user, nil
	}
	return "", nil
}

// InitConfigFile returns where a new configuration file should be written:
// flag > ACTIMETA_CONFIG env > <DefaultConfigDir>/config.yaml.
func InitConfigFile(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigFile); env != "" {
		return filepath.Abs(env)
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
