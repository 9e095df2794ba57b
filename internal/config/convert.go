package config

import (
	"fmt"
	"time"

	"skkime/internal/jisyo"
	"skkime/internal/logging"
	"skkime/internal/romaji"
	"skkime/internal/skk"
)

// LoggingConfig converts the logging section for the logging package.
func (c *Config) LoggingConfig(component string) (*logging.Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}
	return &logging.Config{
		Level:      level,
		Format:     format,
		Output:     c.Logging.Output,
		FilePath:   expandPath(c.Logging.FilePath),
		MaxSize:    int64(c.Logging.MaxSizeMB),
		MaxAge:     c.Logging.MaxAgeDays,
		MaxBackups: c.Logging.MaxBackups,
		Compress:   c.Logging.Compress,
		Component:  component,
	}, nil
}

// AuditConfig converts the audit settings, or returns nil when auditing is
// off.
func (c *Config) AuditConfig() *logging.AuditLoggerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.Dictionary.Audit {
		return nil
	}
	cfg := logging.DefaultAuditConfig()
	cfg.FilePath = expandPath(c.Dictionary.AuditPath)
	cfg.IncludeReadings = c.Dictionary.AuditReadings
	return cfg
}

// RomajiTable builds the standard table with the configured overrides.
func (c *Config) RomajiTable() (*romaji.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.Input.Rules) == 0 {
		return romaji.DefaultTable(), nil
	}
	overrides := make([]romaji.Rule, len(c.Input.Rules))
	for i, r := range c.Input.Rules {
		overrides[i] = romaji.Rule{
			Pattern:   r.Pattern,
			Hiragana:  r.Hiragana,
			Katakana:  r.Katakana,
			Remainder: r.Remainder,
		}
	}
	return romaji.NewTable(romaji.Merge(romaji.DefaultRules(), overrides))
}

// SessionOptions fills the engine settings of opts. Editor, Dictionary and
// Logger are left to the caller.
func (c *Config) SessionOptions(opts *skk.Options) error {
	table, err := c.RomajiTable()
	if err != nil {
		return fmt.Errorf("romaji rules: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	mode, err := skk.ParseInputMode(c.Input.InitialMode)
	if err != nil {
		return err
	}
	opts.Rules = table
	opts.InitialMode = mode
	opts.SelectionKeys = c.Input.SelectionKeys
	opts.InlineCount = c.Input.InlineCount
	opts.CancelToKakutei = c.Input.CancelToKakutei
	return nil
}

// SystemSources converts the system dictionary list for jisyo.LoadSources.
func (c *Config) SystemSources() ([]jisyo.Source, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sources := make([]jisyo.Source, 0, len(c.Dictionary.System))
	for i, d := range c.Dictionary.System {
		enc, err := jisyo.ParseEncoding(d.Encoding)
		if err != nil {
			return nil, fmt.Errorf("dictionary.system[%d]: %w", i, err)
		}
		sources = append(sources, jisyo.Source{
			Path:     expandPath(d.Path),
			Encoding: enc,
			Index:    i,
		})
	}
	return sources, nil
}

// UserDBPath returns the expanded user database path.
func (c *Config) UserDBPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandPath(c.Dictionary.UserDB)
}

// ExportFilePath returns the expanded export path, or "" when export is off.
func (c *Config) ExportFilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Dictionary.ExportPath == "" {
		return ""
	}
	return expandPath(c.Dictionary.ExportPath)
}

// ReloadDebounce returns the system dictionary reload delay.
func (c *Config) ReloadDebounce() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Dictionary.ReloadDebounceMs) * time.Millisecond
}

// ComponentDirPath returns the expanded IBus component directory.
func (c *Config) ComponentDirPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandPath(c.IBus.ComponentDir)
}
