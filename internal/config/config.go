// Package config handles configuration loading, validation, and management for skkime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Version is the current configuration schema version.
const Version = 2

// Config holds the complete input method configuration.
type Config struct {
	// Version is the configuration schema version for migrations.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Input configures the conversion engine.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Dictionary configures the user and system dictionaries.
	Dictionary DictionaryConfig `toml:"dictionary" json:"dictionary" yaml:"dictionary"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// IBus configures the Linux engine.
	IBus IBusConfig `toml:"ibus" json:"ibus" yaml:"ibus"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// InputConfig holds conversion engine settings.
type InputConfig struct {
	// InitialMode is the mode new sessions start in: "ascii", "zenei",
	// "hiragana" or "katakana".
	InitialMode string `toml:"initial_mode" json:"initial_mode" yaml:"initial_mode"`

	// SelectionKeys label the candidates of one menu page.
	SelectionKeys string `toml:"selection_keys" json:"selection_keys" yaml:"selection_keys"`

	// InlineCount is the number of candidates shown inline before the menu.
	InlineCount int `toml:"inline_count" json:"inline_count" yaml:"inline_count"`

	// CancelToKakutei makes ctrl-g discard a conversion outright.
	CancelToKakutei bool `toml:"cancel_to_kakutei" json:"cancel_to_kakutei" yaml:"cancel_to_kakutei"`

	// Rules add to or replace entries of the standard romaji table.
	Rules []RuleConfig `toml:"rules" json:"rules,omitempty" yaml:"rules,omitempty"`
}

// RuleConfig is one romaji rule override.
type RuleConfig struct {
	Pattern   string `toml:"pattern" json:"pattern" yaml:"pattern"`
	Hiragana  string `toml:"hiragana" json:"hiragana" yaml:"hiragana"`
	Katakana  string `toml:"katakana,omitempty" json:"katakana,omitempty" yaml:"katakana,omitempty"`
	Remainder string `toml:"remainder,omitempty" json:"remainder,omitempty" yaml:"remainder,omitempty"`
}

// DictionaryConfig holds dictionary settings.
type DictionaryConfig struct {
	// UserDB is the SQLite database holding the user dictionary.
	UserDB string `toml:"user_db" json:"user_db" yaml:"user_db"`

	// ExportPath, when set, receives the user dictionary in SKK-JISYO
	// format after every change.
	ExportPath string `toml:"export_path" json:"export_path" yaml:"export_path"`

	// System lists read-only dictionaries in lookup order.
	System []SystemDictionary `toml:"system" json:"system" yaml:"system"`

	// WatchSystem reloads system dictionaries when their files change.
	WatchSystem bool `toml:"watch_system" json:"watch_system" yaml:"watch_system"`

	// ReloadDebounceMs is how long a changed file must be stable before reload.
	ReloadDebounceMs int `toml:"reload_debounce_ms" json:"reload_debounce_ms" yaml:"reload_debounce_ms"`

	// Audit enables the dictionary audit log.
	Audit bool `toml:"audit" json:"audit" yaml:"audit"`

	// AuditPath is the audit log location.
	AuditPath string `toml:"audit_path" json:"audit_path" yaml:"audit_path"`

	// AuditReadings records headwords in the audit log.
	AuditReadings bool `toml:"audit_readings" json:"audit_readings" yaml:"audit_readings"`

	// SystemPath and SystemEncoding are the version 1 single dictionary
	// settings; migration moves them into System.
	SystemPath     string `toml:"system_path,omitempty" json:"system_path,omitempty" yaml:"system_path,omitempty"`
	SystemEncoding string `toml:"system_encoding,omitempty" json:"system_encoding,omitempty" yaml:"system_encoding,omitempty"`
}

// SystemDictionary is one read-only dictionary file.
type SystemDictionary struct {
	// Path is an SKK-JISYO text file or a .json dictionary.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Encoding is "euc-jp", "utf-8", "shift_jis" or "auto".
	Encoding string `toml:"encoding" json:"encoding" yaml:"encoding"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file path.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// IBusConfig holds IBus engine settings.
type IBusConfig struct {
	// Address overrides the bus address; empty uses IBUS_ADDRESS or the
	// address file of the running daemon.
	Address string `toml:"address" json:"address" yaml:"address"`

	// EngineName is the engine name registered with the daemon.
	EngineName string `toml:"engine_name" json:"engine_name" yaml:"engine_name"`

	// ComponentDir is where the component XML is installed.
	ComponentDir string `toml:"component_dir" json:"component_dir" yaml:"component_dir"`

	// Layout is the keyboard layout announced to the daemon.
	Layout string `toml:"layout" json:"layout" yaml:"layout"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	data := DataDir()

	return &Config{
		Version: Version,
		Input: InputConfig{
			InitialMode:   "hiragana",
			SelectionKeys: "asdfjkl",
			InlineCount:   3,
		},
		Dictionary: DictionaryConfig{
			UserDB:           filepath.Join(data, "user.db"),
			ExportPath:       filepath.Join(data, "SKK-JISYO.user"),
			System:           DefaultSystemDictionaries(),
			WatchSystem:      true,
			ReloadDebounceMs: 500,
			Audit:            false,
			AuditPath:        filepath.Join(StateDir(), "audit.log"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "file",
			FilePath:   filepath.Join(StateDir(), "skkime.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
		IBus: IBusConfig{
			EngineName:   "skkime",
			ComponentDir: filepath.Join(DataHome(), "ibus", "component"),
			Layout:       "jp",
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
// Older schema versions are migrated in memory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if cfg.Version < Version {
		if _, err := MigrateConfig(cfg, ""); err != nil {
			return nil, fmt.Errorf("migrate config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the configured files live in.
func (c *Config) EnsureDirectories() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dirs := []string{
		filepath.Dir(expandPath(c.Dictionary.UserDB)),
		filepath.Dir(expandPath(c.Logging.FilePath)),
	}
	if c.Dictionary.ExportPath != "" {
		dirs = append(dirs, filepath.Dir(expandPath(c.Dictionary.ExportPath)))
	}
	if c.Dictionary.Audit {
		dirs = append(dirs, filepath.Dir(expandPath(c.Dictionary.AuditPath)))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with SKK_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Input overrides
	if v := os.Getenv("SKK_INITIAL_MODE"); v != "" {
		c.Input.InitialMode = v
	}
	if v := os.Getenv("SKK_SELECTION_KEYS"); v != "" {
		c.Input.SelectionKeys = v
	}
	if v := os.Getenv("SKK_CANCEL_TO_KAKUTEI"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Input.CancelToKakutei = b
		}
	}

	// Dictionary overrides
	if v := os.Getenv("SKK_USER_DB"); v != "" {
		c.Dictionary.UserDB = v
	}
	if v := os.Getenv("SKK_JISYO"); v != "" {
		var dicts []SystemDictionary
		for _, p := range filepath.SplitList(v) {
			if p = strings.TrimSpace(p); p != "" {
				dicts = append(dicts, SystemDictionary{Path: p, Encoding: "auto"})
			}
		}
		c.Dictionary.System = dicts
	}

	// Logging overrides
	if v := os.Getenv("SKK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SKK_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}

	// IBus overrides
	if v := os.Getenv("SKK_IBUS_ADDRESS"); v != "" {
		c.IBus.Address = v
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version:    c.Version,
		Input:      c.Input,
		Dictionary: c.Dictionary,
		Logging:    c.Logging,
		IBus:       c.IBus,
	}
	clone.Input.Rules = append([]RuleConfig(nil), c.Input.Rules...)
	clone.Dictionary.System = append([]SystemDictionary(nil), c.Dictionary.System...)
	return clone
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	data, err := encodeToTOML(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

// decodeTOML decodes data and reports keys the schema does not know.
func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}
