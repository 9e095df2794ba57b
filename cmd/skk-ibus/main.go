//go:build linux

// skk-ibus is the IBus input method engine.
//
// ibus-daemon starts it with --ibus once the component file is installed:
//
//	skk-ibus -install
//	ibus engine skkime
//
// Configuration changes to the input section take effect in running engines
// without a restart; dictionary list changes need one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"syscall"

	"skkime/internal/app"
	"skkime/internal/config"
	"skkime/internal/ime"
	"skkime/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	ibusFlag := flag.Bool("ibus", false, "run as launched by ibus-daemon")
	installFlag := flag.Bool("install", false, "install the IBus component")
	uninstallFlag := flag.Bool("uninstall", false, "uninstall the IBus component")
	noRestart := flag.Bool("no-restart", false, "do not restart ibus-daemon after install or uninstall")
	flag.Parse()

	loader := config.NewLoader(*configPath, nil)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch {
	case *installFlag:
		if err := install(cfg, !*noRestart); err != nil {
			log.Fatalf("Failed to install: %v", err)
		}
		return
	case *uninstallFlag:
		if err := uninstall(cfg, !*noRestart); err != nil {
			log.Fatalf("Failed to uninstall: %v", err)
		}
		return
	}

	if err := run(loader, cfg, *ibusFlag); err != nil {
		log.Fatalf("skk-ibus: %v", err)
	}
}

func run(loader *config.Loader, cfg *config.Config, launched bool) error {
	logCfg, err := cfg.LoggingConfig("ibus")
	if err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)
	loader.SetLogger(logger.Logger)

	crash := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		Version:   app.Version,
		Component: "ibus",
		Logger:    logger.Logger,
	})
	defer crash.Recover("main", nil)

	a, err := app.Open(cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.WatchSystem(ctx); err != nil {
		logger.Warn("system dictionaries will not be reloaded", "error", err)
	}

	opts, err := a.SessionOptions(cfg)
	if err != nil {
		return err
	}
	server := ime.NewIBusServer(ime.ServerConfig{
		Address: cfg.IBus.Address,
		Factory: ime.FactoryConfig{
			EngineName: cfg.IBus.EngineName,
			Options:    opts,
			Logger:     logger.Logger,
			Crash:      crash,
		},
	})
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("stop ibus server", "error", err)
		}
		stats := server.Factory().GetStats()
		logger.Info("engine stopped",
			"engines", stats.EnginesCreated,
			"keys", stats.Keys,
			"commits", stats.Commits,
			"conversions", stats.Conversions,
			"registrations", stats.Registrations,
		)
	}()

	loader.OnChange(func(old, new *config.Config) {
		if !reflect.DeepEqual(old.Dictionary, new.Dictionary) {
			logger.Warn("dictionary settings changed; restart the engine to apply them")
		}
		opts, err := a.SessionOptions(new)
		if err == nil {
			err = server.Factory().Reconfigure(opts)
		}
		if err != nil {
			logger.Error("apply reloaded config", "error", err)
			return
		}
		logger.Info("input settings applied", "engines", server.Factory().Engines())
	})
	if err := loader.Watch(); err != nil {
		logger.Warn("config file will not be watched", "error", err)
	}
	defer loader.Close()
	go func() {
		for err := range loader.Errors() {
			logger.Warn("config reload", "error", err)
		}
	}()

	logger.Info("skk-ibus started",
		"version", app.Version,
		"engine", cfg.IBus.EngineName,
		"launched_by_daemon", launched,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", "signal")
	case <-server.Done():
		logger.Info("shutting down", "reason", "bus connection closed")
	}
	return nil
}

func install(cfg *config.Config, restart bool) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return err
	}
	component := ime.NewComponent(cfg.IBus.EngineName, cfg.IBus.Layout, exe)
	path, err := ime.InstallComponent(cfg.ComponentDirPath(), component)
	if err != nil {
		return err
	}
	fmt.Printf("Installed %s\n", path)
	if !restart {
		fmt.Println("Run 'ibus restart' to load the engine.")
		return nil
	}
	if err := ime.RestartIBus(); err != nil {
		return fmt.Errorf("restart ibus: %w", err)
	}
	fmt.Printf("Select the engine with 'ibus engine %s'.\n", cfg.IBus.EngineName)
	return nil
}

func uninstall(cfg *config.Config, restart bool) error {
	dir := cfg.ComponentDirPath()
	if !ime.IsInstalled(dir, cfg.IBus.EngineName) {
		return errors.New("component is not installed in " + dir)
	}
	if err := ime.UninstallComponent(dir, cfg.IBus.EngineName); err != nil {
		return err
	}
	fmt.Println("Uninstalled.")
	if restart {
		return ime.RestartIBus()
	}
	return nil
}
