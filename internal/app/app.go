// Package app assembles the dictionary stack described by a configuration:
// the SQLite user store, the system dictionaries, the export file, the audit
// log and the system dictionary watcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"skkime/internal/config"
	"skkime/internal/jisyo"
	"skkime/internal/logging"
	"skkime/internal/skk"
	"skkime/internal/store"
)

// Version is reported in audit and crash records.
const Version = "1.0.0"

// App owns the long-lived resources of an input method process.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Dictionary *jisyo.Dictionary
	Exporter   *jisyo.FileExporter
	Audit      *logging.AuditLogger

	logger  *slog.Logger
	sources []jisyo.Source
	layers  []jisyo.Layer

	mu      sync.Mutex
	watcher *jisyo.Watcher
	wg      sync.WaitGroup
}

// Open builds the dictionary stack for cfg. System dictionaries that do not
// exist are skipped with a warning.
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.UserDBPath())
	if err != nil {
		return nil, fmt.Errorf("open user dictionary: %w", err)
	}
	user, err := store.LoadUserLayer(st)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load user dictionary: %w", err)
	}

	sources, err := availableSources(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	layers, err := jisyo.LoadSources(sources)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load system dictionaries: %w", err)
	}

	a := &App{
		Config:  cfg,
		Store:   st,
		logger:  logger,
		sources: sources,
		layers:  layers,
	}
	a.Dictionary = jisyo.New(user, layers, jisyo.WithLogger(logger), jisyo.WithPersister(st))

	if path := cfg.ExportFilePath(); path != "" {
		a.Exporter = jisyo.NewFileExporter(path, a.Dictionary.UserLayer())
		a.Dictionary.AddPersister(a.Exporter)
	}
	if auditCfg := cfg.AuditConfig(); auditCfg != nil {
		a.Audit, err = logging.NewAuditLogger(auditCfg)
		if err != nil {
			st.Close()
			return nil, err
		}
		a.Dictionary.AddPersister(a.Audit)
		a.Audit.LogStartup(Version)
	}

	logger.Info("dictionaries loaded",
		"user_entries", user.Len(),
		"system_layers", len(layers),
	)
	return a, nil
}

// availableSources converts the configured system dictionaries, dropping
// the ones that are missing and renumbering the rest.
func availableSources(cfg *config.Config, logger *slog.Logger) ([]jisyo.Source, error) {
	all, err := cfg.SystemSources()
	if err != nil {
		return nil, err
	}
	var out []jisyo.Source
	for _, src := range all {
		if _, err := os.Stat(src.Path); err != nil {
			logger.Warn("system dictionary unavailable", "path", src.Path, "error", err)
			continue
		}
		src.Index = len(out)
		out = append(out, src)
	}
	return out, nil
}

// Sources returns the system dictionaries that were loaded.
func (a *App) Sources() []jisyo.Source {
	return append([]jisyo.Source(nil), a.sources...)
}

// Scratch returns a dictionary over a copy of the user layer and the system
// layers as loaded by Open. Changes to it are not persisted.
func (a *App) Scratch() *jisyo.Dictionary {
	src := a.Dictionary.UserLayer()
	user := jisyo.NewMapLayer()
	for _, key := range src.Keys() {
		if cands, ok := src.Get(key); ok {
			user.Set(key, cands)
		}
	}
	return jisyo.New(user, a.layers, jisyo.WithLogger(a.logger))
}

// SessionOptions returns engine options for cfg over the app's dictionary.
func (a *App) SessionOptions(cfg *config.Config) (skk.Options, error) {
	opts := skk.Options{
		Dictionary: a.Dictionary,
		Logger:     a.logger,
	}
	if err := cfg.SessionOptions(&opts); err != nil {
		return skk.Options{}, err
	}
	return opts, nil
}

// WatchSystem starts reloading system dictionaries on change when the
// configuration asks for it. The watcher stops with ctx or Close.
func (a *App) WatchSystem(ctx context.Context) error {
	if !a.Config.Dictionary.WatchSystem || len(a.sources) == 0 {
		return nil
	}
	w, err := jisyo.NewWatcher(a.Dictionary, a.sources, a.Config.ReloadDebounce(), a.logger)
	if err != nil {
		return fmt.Errorf("create dictionary watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}

	a.mu.Lock()
	a.watcher = w
	a.mu.Unlock()

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		for r := range w.Reloads() {
			a.logger.Info("system dictionary reloaded", "path", r.Path, "entries", r.Entries)
			if a.Audit != nil {
				a.Audit.LogReload(r.Path, r.Entries)
			}
		}
	}()
	go func() {
		defer a.wg.Done()
		for err := range w.Errors() {
			a.logger.Warn("system dictionary reload failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		a.stopWatcher()
	}()
	return nil
}

func (a *App) stopWatcher() {
	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if w != nil {
		if err := w.Stop(); err != nil {
			a.logger.Warn("stop dictionary watcher", "error", err)
		}
	}
}

// Close stops the watcher and releases the store and audit log.
func (a *App) Close() error {
	a.stopWatcher()
	a.wg.Wait()

	var errs []error
	if a.Audit != nil {
		a.Audit.LogShutdown("exit")
		errs = append(errs, a.Audit.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
