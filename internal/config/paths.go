package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "tsundoku"

// HomeEnv, when set, roots config, state and runtime files in one directory.
const HomeEnv = "TSUNDOKU_HOME"

// xdgDir resolves an XDG base directory for tsundoku: $env/tsundoku when the
// variable is set, otherwise ~/<fallback>/tsundoku.
func xdgDir(env string, fallback ...string) string {
	base := os.Getenv(env)
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	return filepath.Join(base, appName)
}

func homeOverride(sub string) (string, bool) {
	root := os.Getenv(HomeEnv)
	if root == "" {
		return "", false
	}
	return filepath.Join(root, sub), true
}

// GetTsundokuDir is where settings.json lives.
func GetTsundokuDir() string {
	if dir, ok := homeOverride("config"); ok {
		return dir
	}
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming", appName)
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", appName)
	}
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// GetStateDir holds the database, the API token and logs. Outside Linux it
// is the config dir.
func GetStateDir() string {
	if dir, ok := homeOverride("state"); ok {
		return dir
	}
	if runtime.GOOS != "linux" {
		return GetTsundokuDir()
	}
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// GetRuntimeDir holds the instance lock and the port file.
func GetRuntimeDir() string {
	if dir, ok := homeOverride("run"); ok {
		return dir
	}
	if runtime.GOOS == "linux" && os.Getenv("XDG_RUNTIME_DIR") != "" {
		return xdgDir("XDG_RUNTIME_DIR")
	}
	return GetStateDir()
}

func GetLogsDir() string {
	return filepath.Join(GetStateDir(), "logs")
}

// EnsureDirs creates every directory above.
func EnsureDirs() error {
	for _, dir := range []string{GetTsundokuDir(), GetStateDir(), GetRuntimeDir(), GetLogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
