// Package paths resolves the pantry CLI's configuration and data directories
// and the files pantry keeps inside the data directory: the SQLite database
// and the JSONL snapshot folder.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user platform directories.
const AppName = "pantry"

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".pantry"
	DefaultDataDirName   = ".pantry-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "PANTRY_CONFIG_DIR"
	EnvDataDir   = "PANTRY_DATA_DIR"
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
// Linux:   $XDG_CONFIG_HOME/pantry (fallback ~/.config/pantry)
// macOS:   ~/Library/Application Support/pantry
// Windows: %APPDATA%/pantry
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		// macOS and Windows use os.UserConfigDir which returns
		// ~/Library/Application Support on macOS and %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/pantry (fallback ~/.local/share/pantry)
// macOS:   ~/Library/Application Support/pantry
// Windows: %APPDATA%/pantry
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", AppName), nil
	default:
		// macOS and Windows: same as config dir.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > PANTRY_CONFIG_DIR env > DefaultConfigDir().
//
// If flag is non-empty it wins. Otherwise the PANTRY_CONFIG_DIR environment
// variable is checked. If neither is set, the platform default is returned.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > PANTRY_DATA_DIR env > $(CWD)/.pantry-db.
//
// DefaultDataDir is not part of the chain; a project-local directory keeps
// SQLite files and snapshots next to the work that produced them.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// Names of the entries pantry keeps inside the data directory.
const (
	// DatabaseFileName is the SQLite provider's database file.
	DatabaseFileName = "pantry.db"
	// SnapshotDirName holds JSONL exports, one file per collection.
	SnapshotDirName = "snapshots"
)

// InMemoryDatabase is the SQLite path for a private in-process database.
const InMemoryDatabase = ":memory:"

// SnapshotDir returns the default snapshot directory inside dataDir.
func SnapshotDir(dataDir string) string {
	return filepath.Join(dataDir, SnapshotDirName)
}

// ResolveSnapshotDir returns the snapshot directory: flag > dataDir/snapshots.
func ResolveSnapshotDir(flag, dataDir string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	return SnapshotDir(dataDir), nil
}

// DatabaseFile returns the SQLite database path. An absolute configured path
// is used as is, a relative one is taken inside dataDir, and an empty one
// falls back to pantry.db in dataDir. InMemoryDatabase passes through.
func DatabaseFile(dataDir, configured string) string {
	switch {
	case configured == InMemoryDatabase:
		return configured
	case configured == "":
		return filepath.Join(dataDir, DatabaseFileName)
	case filepath.IsAbs(configured):
		return configured
	default:
		return filepath.Join(dataDir, configured)
	}
}
