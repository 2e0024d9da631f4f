package main

import (
	"log/slog"
	"strings"
	"sync"

	"hevcify/internal/config"
	"hevcify/internal/logging"
	"hevcify/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// configCopy returns a private copy so commands can layer flag overrides
// without mutating the shared config.
func (c *commandContext) configCopy() (*config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cp := *cfg
	return &cp, nil
}

func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
