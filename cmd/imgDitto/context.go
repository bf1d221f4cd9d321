package main

import (
	"os"
	"strings"

	"github.com/jdefrancesco/imgDitto/internal/config"
	"github.com/jdefrancesco/imgDitto/internal/dsklog"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// commandContext carries the persistent flags and the loaded configuration
// to every subcommand.
type commandContext struct {
	configFlag   string
	logFileFlag  string
	logLevelFlag string
	noBanner     bool

	cfg    config.Config
	loaded bool
}

// ensureConfig loads the configuration once and starts the logger from it.
func (c *commandContext) ensureConfig() (config.Config, error) {
	if c.loaded {
		return c.cfg, nil
	}

	path := strings.TrimSpace(c.configFlag)
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if f := strings.TrimSpace(c.logFileFlag); f != "" {
		cfg.LogFile = f
	}
	if l := strings.TrimSpace(c.logLevelFlag); l != "" {
		cfg.LogLevel = l
	}

	if err := dsklog.InitializeDlogger(cfg.LogFile); err != nil {
		pterm.Warning.Printf("%v; logging to stderr\n", err)
	}
	if !dsklog.EnvLevelSet() {
		if err := dsklog.SetLevel(cfg.LogLevel); err != nil {
			return cfg, err
		}
	}
	dsklog.Dlogger.Infof("Logger initialized, config %q", path)

	c.cfg = cfg
	c.loaded = true
	return cfg, nil
}

// interactive reports whether f is attached to a terminal.
func interactive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
