package logging

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"skkime/internal/jisyo"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

// Audit event types.
const (
	AuditEventSave     AuditEventType = "save"
	AuditEventDelete   AuditEventType = "delete"
	AuditEventImport   AuditEventType = "import"
	AuditEventExport   AuditEventType = "export"
	AuditEventReload   AuditEventType = "reload"
	AuditEventStartup  AuditEventType = "startup"
	AuditEventShutdown AuditEventType = "shutdown"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType AuditEventType `json:"event_type"`
	Component string         `json:"component"`
	Resource  string         `json:"resource,omitempty"`
	Result    string         `json:"result"`
	Count     int            `json:"count,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// AuditLoggerConfig holds configuration for the audit logger.
type AuditLoggerConfig struct {
	FilePath   string
	MaxSize    int64
	MaxAge     int
	MaxBackups int
	Compress   bool
	Component  string

	// IncludeReadings records dictionary headwords in save and delete
	// events. Off by default: headwords are what the user typed.
	IncludeReadings bool
}

// DefaultAuditConfig returns default audit logger configuration.
func DefaultAuditConfig() *AuditLoggerConfig {
	return &AuditLoggerConfig{
		FilePath:   filepath.Join(stateDir(), "audit.log"),
		MaxSize:    5,
		MaxAge:     90,
		MaxBackups: 5,
		Compress:   true,
		Component:  "skkime",
	}
}

// AuditLogger appends dictionary mutations to a JSON lines file. It
// implements jisyo.Persister so it can be attached to a Dictionary next to
// the real stores.
type AuditLogger struct {
	config  *AuditLoggerConfig
	rotator *FileRotator
	now     func() time.Time
	mu      sync.Mutex
}

var _ jisyo.Persister = (*AuditLogger)(nil)

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger(cfg *AuditLoggerConfig) (*AuditLogger, error) {
	if cfg == nil {
		cfg = DefaultAuditConfig()
	}
	rotator, err := NewFileRotator(&Config{
		FilePath:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("create audit rotator: %w", err)
	}
	return &AuditLogger{config: cfg, rotator: rotator, now: time.Now}, nil
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = a.now().UTC()
	}
	if event.Component == "" {
		event.Component = a.config.Component
	}
	if event.Result == "" {
		event.Result = "success"
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	data = append(data, '\n')
	if _, err := a.rotator.Write(data); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

func (a *AuditLogger) reading(key string) string {
	if a.config.IncludeReadings {
		return key
	}
	return ""
}

// SaveEntry records a user-layer write.
func (a *AuditLogger) SaveEntry(key string, cands []jisyo.Candidate) error {
	return a.Log(AuditEvent{
		EventType: AuditEventSave,
		Resource:  a.reading(key),
		Count:     len(cands),
	})
}

// DeleteEntry records the removal of a user-layer headword.
func (a *AuditLogger) DeleteEntry(key string) error {
	return a.Log(AuditEvent{
		EventType: AuditEventDelete,
		Resource:  a.reading(key),
	})
}

// LogImport records a bulk import into the user dictionary.
func (a *AuditLogger) LogImport(path string, entries int, err error) error {
	return a.Log(withError(AuditEvent{
		EventType: AuditEventImport,
		Resource:  path,
		Count:     entries,
	}, err))
}

// LogExport records a dictionary export.
func (a *AuditLogger) LogExport(path string, entries int, err error) error {
	return a.Log(withError(AuditEvent{
		EventType: AuditEventExport,
		Resource:  path,
		Count:     entries,
	}, err))
}

// LogReload records a system dictionary reload.
func (a *AuditLogger) LogReload(path string, entries int) error {
	return a.Log(AuditEvent{
		EventType: AuditEventReload,
		Resource:  path,
		Count:     entries,
	})
}

// LogStartup records process start.
func (a *AuditLogger) LogStartup(version string) error {
	return a.Log(AuditEvent{
		EventType: AuditEventStartup,
		Details:   map[string]any{"version": version},
	})
}

// LogShutdown records process exit.
func (a *AuditLogger) LogShutdown(reason string) error {
	return a.Log(AuditEvent{
		EventType: AuditEventShutdown,
		Details:   map[string]any{"reason": reason},
	})
}

func withError(e AuditEvent, err error) AuditEvent {
	if err != nil {
		e.Result = "failure"
		e.Error = err.Error()
	}
	return e
}

// Close closes the audit file.
func (a *AuditLogger) Close() error {
	return a.rotator.Close()
}
