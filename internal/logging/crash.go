package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

// CrashReport is written when a recovered panic would otherwise have killed
// the input method.
type CrashReport struct {
	Timestamp  time.Time      `json:"timestamp"`
	Version    string         `json:"version"`
	GOOS       string         `json:"goos"`
	GOARCH     string         `json:"goarch"`
	Component  string         `json:"component,omitempty"`
	Operation  string         `json:"operation,omitempty"`
	PanicValue string         `json:"panic_value"`
	StackTrace string         `json:"stack_trace"`
	Context    map[string]any `json:"context,omitempty"`
}

// CrashHandler turns panics into crash dumps plus an error log record.
type CrashHandler struct {
	mu        sync.Mutex
	crashDir  string
	version   string
	component string
	logger    *slog.Logger
	now       func() time.Time
}

// CrashHandlerConfig configures the crash handler.
type CrashHandlerConfig struct {
	CrashDir  string
	Version   string
	Component string
	Logger    *slog.Logger
}

// DefaultCrashDir returns $XDG_STATE_HOME/skkime/crashes.
func DefaultCrashDir() string {
	return filepath.Join(stateDir(), "crashes")
}

// NewCrashHandler creates a CrashHandler.
func NewCrashHandler(cfg *CrashHandlerConfig) *CrashHandler {
	if cfg == nil {
		cfg = &CrashHandlerConfig{}
	}
	if cfg.CrashDir == "" {
		cfg.CrashDir = DefaultCrashDir()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CrashHandler{
		crashDir:  cfg.CrashDir,
		version:   cfg.Version,
		component: cfg.Component,
		logger:    logger,
		now:       time.Now,
	}
}

// Recover must be deferred directly. It swallows a panic after recording it.
//
//	defer crash.Recover("ProcessKeyEvent", nil)
func (h *CrashHandler) Recover(op string, context map[string]any) {
	if r := recover(); r != nil {
		h.HandlePanic(op, r, context)
	}
}

// HandlePanic records a recovered panic value.
func (h *CrashHandler) HandlePanic(op string, value any, context map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := CrashReport{
		Timestamp:  h.now().UTC(),
		Version:    h.version,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		Component:  h.component,
		Operation:  op,
		PanicValue: fmt.Sprint(value),
		StackTrace: string(debug.Stack()),
		Context:    context,
	}
	path, err := h.write(report)
	if err != nil {
		h.logger.Error("panic recovered; crash dump failed", "op", op, "panic", report.PanicValue, "error", err)
		return
	}
	h.logger.Error("panic recovered", "op", op, "panic", report.PanicValue, "dump", path)
}

func (h *CrashHandler) write(report CrashReport) (string, error) {
	if err := os.MkdirAll(h.crashDir, 0o750); err != nil {
		return "", fmt.Errorf("create crash dir: %w", err)
	}
	name := fmt.Sprintf("crash-%s-%s.json", report.Component, report.Timestamp.Format("20060102-150405.000"))
	path := filepath.Join(h.crashDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

// Reports returns the crash reports on disk, oldest first.
func (h *CrashHandler) Reports() ([]CrashReport, error) {
	files, err := filepath.Glob(filepath.Join(h.crashDir, "crash-*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	reports := make([]CrashReport, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var report CrashReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}
