package main

import (
	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/database"
	"github.com/content-review-api/pkg/logger"
	"github.com/rs/zerolog"
)

// commandContext loads configuration lazily so commands that never touch
// storage run without a database or environment.
type commandContext struct {
	migrationsFlag *string

	cfg *config.Config
	log zerolog.Logger
}

func newCommandContext(migrationsFlag *string) *commandContext {
	return &commandContext{migrationsFlag: migrationsFlag, log: logger.New()}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if c.migrationsFlag != nil && *c.migrationsFlag != "" {
		cfg.Database.MigrationsPath = *c.migrationsFlag
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) openDatabase() (*database.DB, *config.Config, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(&cfg.Database, c.log)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}
