package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"skkime/internal/jisyo"
	"skkime/internal/logging"
	"skkime/internal/skk"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Is lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateInput(&c.Input)...)
	errs = append(errs, validateDictionary(&c.Dictionary)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateIBus(&c.IBus)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateInput(in *InputConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := skk.ParseInputMode(in.InitialMode); err != nil {
		errs = append(errs, ValidationError{
			Field:   "input.initial_mode",
			Message: fmt.Sprintf("invalid mode: %s (valid: ascii, zenei, hiragana, katakana)", in.InitialMode),
		})
	}

	if in.SelectionKeys == "" {
		errs = append(errs, *RequiredFieldError("input.selection_keys"))
	} else if err := skk.ValidateSelectionKeys(in.SelectionKeys); err != nil {
		errs = append(errs, ValidationError{
			Field:   "input.selection_keys",
			Message: strings.TrimPrefix(err.Error(), "skk: "),
		})
	}

	if in.InlineCount < 0 || in.InlineCount > 9 {
		errs = append(errs, *RangeError("input.inline_count", 0, 9))
	}

	seen := make(map[string]bool, len(in.Rules))
	for i, r := range in.Rules {
		field := fmt.Sprintf("input.rules[%d]", i)
		switch {
		case r.Pattern == "" || len(r.Pattern) > 4:
			errs = append(errs, ValidationError{Field: field + ".pattern", Message: "pattern must be 1-4 characters"})
		case !isASCIIPrintable(r.Pattern):
			errs = append(errs, ValidationError{Field: field + ".pattern", Message: "pattern must be printable ASCII"})
		case seen[r.Pattern]:
			errs = append(errs, ValidationError{Field: field + ".pattern", Message: fmt.Sprintf("duplicate pattern %q", r.Pattern)})
		}
		seen[r.Pattern] = true
		if r.Hiragana == "" && r.Remainder == "" {
			errs = append(errs, ValidationError{Field: field + ".hiragana", Message: "rule produces nothing"})
		}
		if len(r.Remainder) >= len(r.Pattern) && r.Pattern != "" {
			errs = append(errs, ValidationError{Field: field + ".remainder", Message: "remainder must be shorter than the pattern"})
		}
	}

	return errs
}

func isASCIIPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

func validateDictionary(d *DictionaryConfig) ValidationErrors {
	var errs ValidationErrors

	if d.UserDB == "" {
		errs = append(errs, *RequiredFieldError("dictionary.user_db"))
	}

	for i, sys := range d.System {
		field := fmt.Sprintf("dictionary.system[%d]", i)
		if expandPath(sys.Path) == "" {
			errs = append(errs, ValidationError{Field: field + ".path", Message: "path cannot be empty"})
		} else if _, err := os.Stat(expandPath(sys.Path)); err != nil {
			errs = append(errs, ValidationError{Field: field + ".path", Message: fmt.Sprintf("not readable: %v", err)})
		}
		if _, err := jisyo.ParseEncoding(sys.Encoding); err != nil {
			errs = append(errs, ValidationError{Field: field + ".encoding", Message: fmt.Sprintf("unknown encoding %q", sys.Encoding)})
		}
	}

	if d.ReloadDebounceMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "dictionary.reload_debounce_ms",
			Message: "debounce cannot be negative",
		})
	}

	if d.Audit && d.AuditPath == "" {
		errs = append(errs, ValidationError{
			Field:   "dictionary.audit_path",
			Message: "audit path is required when audit is enabled",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(l.Level); err != nil {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	if _, err := logging.ParseFormat(l.Format); err != nil || l.Format == "" {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is '" + l.Output + "'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid output: %q (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	if l.MaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_age_days",
			Message: "max age cannot be negative",
		})
	}

	return errs
}

func validateIBus(b *IBusConfig) ValidationErrors {
	var errs ValidationErrors

	if b.EngineName == "" {
		errs = append(errs, *RequiredFieldError("ibus.engine_name"))
	} else if strings.ContainsAny(b.EngineName, " /<>&\"'") {
		errs = append(errs, ValidationError{
			Field:   "ibus.engine_name",
			Message: "engine name must not contain spaces, slashes or markup characters",
		})
	}

	return errs
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// IsWarning returns true if this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool {
	// Dictionaries may be installed after the config is written.
	return strings.HasPrefix(e.Field, "dictionary.system[") && strings.HasSuffix(e.Field, ".path")
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
