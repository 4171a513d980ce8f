// Package paths resolves configuration and data directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "codemarshall"

// File names inside the resolved directories.
const (
	ConfigFileName   = "config.yaml"
	DatabaseFileName = "snippets.db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CODEMARSHALL_CONFIG_DIR"
	EnvDataDir   = "CODEMARSHALL_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/codemarshall (fallback ~/.config/codemarshall)
// macOS:   ~/Library/Application Support/codemarshall
// Windows: %APPDATA%/codemarshall
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	return userDir()
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/codemarshall (fallback ~/.local/share/codemarshall)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	return userDir()
}

func xdgDir(env, homeRel string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

// userDir covers macOS and Windows, where os.UserConfigDir returns
// ~/Library/Application Support and %APPDATA% respectively.
func userDir() (string, error) {
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > CODEMARSHALL_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	return resolve(flag, EnvConfigDir, DefaultConfigDir)
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > CODEMARSHALL_DATA_DIR env > DefaultDataDir().
func ResolveDataDir(flag string) (string, error) {
	return resolve(flag, EnvDataDir, DefaultDataDir)
}

func resolve(flag, env string, fallback func() (string, error)) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Abs(v)
	}
	return fallback()
}

// DefaultDatabaseURL returns the SQLite URL for the database file in dataDir.
// dataDir is absolute, so the URL carries four slashes.
func DefaultDatabaseURL(dataDir string) string {
	return "sqlite:///" + filepath.ToSlash(filepath.Join(dataDir, DatabaseFileName))
}
