package config

import (
	"os"
	"path/filepath"
)

// appName names the per-user directories.
const appName = "skkime"

// DataHome returns $XDG_DATA_HOME, defaulting to ~/.local/share.
func DataHome() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// DataDir returns the directory for the user dictionary.
// SKK_DATA_DIR overrides the XDG location.
//
//   - $SKK_DATA_DIR
//   - $XDG_DATA_HOME/skkime
//   - ~/.local/share/skkime
func DataDir() string {
	if envDir := os.Getenv("SKK_DATA_DIR"); envDir != "" {
		return envDir
	}
	return filepath.Join(DataHome(), appName)
}

// ConfigDir returns $XDG_CONFIG_HOME/skkime.
func ConfigDir() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName)
}

// StateDir returns $XDG_STATE_HOME/skkime, where logs and crash dumps go.
func StateDir() string {
	return filepath.Join(xdgDir("XDG_STATE_HOME", ".local", "state"), appName)
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// systemDictionaryCandidates are the usual install locations of the large
// SKK dictionary, in preference order.
var systemDictionaryCandidates = []string{
	"/usr/share/skk/SKK-JISYO.L",
	"/usr/local/share/skk/SKK-JISYO.L",
	"/usr/share/skk/SKK-JISYO.M",
	"/usr/share/skk/SKK-JISYO.S",
}

// DefaultSystemDictionaries returns the first installed system dictionary,
// or nothing when none is installed.
func DefaultSystemDictionaries() []SystemDictionary {
	for _, p := range systemDictionaryCandidates {
		if _, err := os.Stat(p); err == nil {
			return []SystemDictionary{{Path: p, Encoding: "euc-jp"}}
		}
	}
	return nil
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{
		"toml",
		"json",
		"yaml",
		"yml",
	}
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first found config file, or empty string if none found.
func FindConfigFile() string {
	for _, dir := range []string{".", ConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
