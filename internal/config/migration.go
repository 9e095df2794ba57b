package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MigrationResult contains the result of a configuration migration.
type MigrationResult struct {
	FromVersion int      `json:"from_version"`
	ToVersion   int      `json:"to_version"`
	Backup      string   `json:"backup,omitempty"`
	Changes     []string `json:"changes,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// MigrateConfig migrates a configuration from an older version to the current version.
// When configPath names an existing file, a backup is written first.
func MigrateConfig(cfg *Config, configPath string) (*MigrationResult, error) {
	if cfg.Version >= Version {
		return nil, nil
	}

	result := &MigrationResult{
		FromVersion: cfg.Version,
		ToVersion:   Version,
	}

	if configPath != "" {
		backup, err := backupConfig(configPath)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("could not create backup: %v", err))
		} else {
			result.Backup = backup
		}
	}

	for cfg.Version < Version {
		changes, warnings, err := applyMigration(cfg)
		if err != nil {
			return result, fmt.Errorf("migration from v%d to v%d failed: %w", cfg.Version, cfg.Version+1, err)
		}
		result.Changes = append(result.Changes, changes...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	return result, nil
}

// applyMigration applies a single version upgrade.
func applyMigration(cfg *Config) (changes []string, warnings []string, err error) {
	switch cfg.Version {
	case 0, 1:
		changes, warnings = migrateV1ToV2(cfg)
		cfg.Version = 2
		return changes, warnings, nil
	default:
		return nil, nil, fmt.Errorf("unknown version %d", cfg.Version)
	}
}

// migrateV1ToV2 moves the single system dictionary of version 1 into the
// system list.
func migrateV1ToV2(cfg *Config) (changes []string, warnings []string) {
	d := &cfg.Dictionary
	if d.SystemPath == "" {
		return nil, nil
	}

	enc := d.SystemEncoding
	if enc == "" {
		enc = "euc-jp"
	}
	d.System = append([]SystemDictionary{{Path: d.SystemPath, Encoding: enc}}, withoutPath(d.System, d.SystemPath)...)
	changes = append(changes, fmt.Sprintf("moved dictionary.system_path %s into dictionary.system", d.SystemPath))
	if _, err := os.Stat(expandPath(d.SystemPath)); err != nil {
		warnings = append(warnings, fmt.Sprintf("system dictionary %s is not readable", d.SystemPath))
	}

	d.SystemPath = ""
	d.SystemEncoding = ""
	return changes, warnings
}

func withoutPath(dicts []SystemDictionary, path string) []SystemDictionary {
	var out []SystemDictionary
	for _, d := range dicts {
		if d.Path != path {
			out = append(out, d)
		}
	}
	return out
}

// backupConfig creates a backup of the config file.
func backupConfig(configPath string) (string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}

	backupPath := configPath + ".backup-" + time.Now().Format("20060102-150405")
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	return backupPath, nil
}

// SaveConfig saves the configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = encodeToYAML(cfg)
	default:
		data, err = encodeToTOML(cfg)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// encodeToTOML encodes the config to TOML format.
func encodeToTOML(cfg *Config) ([]byte, error) {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# skkime configuration\n# Version %d\n\n", cfg.Version)
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeToYAML encodes the config to YAML format.
func encodeToYAML(cfg *Config) ([]byte, error) {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
