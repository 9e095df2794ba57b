// skkterm runs the conversion engine in a terminal. It is a scratch pad for
// trying dictionaries and romaji rules without an input method framework;
// the typed text is printed when it exits.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"

	"skkime/internal/app"
	"skkime/internal/config"
	"skkime/internal/ime"
	"skkime/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	text, err := run(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skkterm: %v\n", err)
		os.Exit(1)
	}
	if text != "" {
		fmt.Println(text)
	}
}

func run(configPath string) (string, error) {
	cfg, err := config.NewLoader(configPath, nil).Load()
	if err != nil {
		return "", err
	}

	// The screen owns the terminal, so records only go to the log file.
	logCfg, err := cfg.LoggingConfig("term")
	if err != nil {
		return "", err
	}
	logCfg.Output = "file"
	if err := cfg.EnsureDirectories(); err != nil {
		return "", err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return "", err
	}
	defer logger.Close()
	logging.SetDefault(logger)

	a, err := app.Open(cfg, logger.Logger)
	if err != nil {
		return "", err
	}
	defer a.Close()

	opts, err := a.SessionOptions(cfg)
	if err != nil {
		return "", err
	}
	composer, err := ime.NewComposer(opts)
	if err != nil {
		return "", err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return "", err
	}
	if err := screen.Init(); err != nil {
		return "", err
	}
	defer screen.Fini()

	t := newTerminal(composer)
	loop(screen, t)
	return t.text(), nil
}

func loop(s tcell.Screen, t *terminal) {
	for {
		t.draw(s)
		switch ev := s.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventKey:
			if !t.handleKey(ev) {
				return
			}
		}
	}
}
