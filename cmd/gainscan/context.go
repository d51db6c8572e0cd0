package main

import (
	"log/slog"

	"gainscan/internal/config"
	"gainscan/internal/logging"
)

// commandContext carries lazily-loaded configuration across subcommands.
type commandContext struct {
	configFlag *string

	cfg *config.Config
	log *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the configuration once, from the --config path or the
// default location.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// logger builds the structured logger from the loaded configuration.
func (c *commandContext) logger() (*slog.Logger, error) {
	if c.log != nil {
		return c.log, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, err
	}
	c.log = log
	return log, nil
}
