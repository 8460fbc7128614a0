package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"greenlight/internal/api"
	"greenlight/internal/config"
	"greenlight/internal/logging"
	"greenlight/internal/pipeline"
	"greenlight/internal/project"
	"greenlight/internal/services/gemini"
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

// app bundles everything a command needs for one invocation. Close releases
// the store lock and flushes any pending auto-save.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *project.Store
	orch    *pipeline.Orchestrator
	saver   *pipeline.Autosaver
	service *api.Service
}

func (c *commandContext) openApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := project.Open(cfg)
	if err != nil {
		return nil, err
	}
	client := gemini.NewClient(cfg.Gemini)
	orch := pipeline.NewOrchestrator(client, store, logger)
	saver := pipeline.NewAutosaver(store, logger,
		time.Duration(cfg.Workflow.AutosaveDebounceMillis)*time.Millisecond,
		time.Duration(cfg.Workflow.AutosaveIntervalSeconds)*time.Second,
	)
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		orch:    orch,
		saver:   saver,
		service: api.NewService(store, orch, saver, logger),
	}, nil
}

func (a *app) Close() {
	a.saver.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", logging.FieldError, err)
	}
}

func (c *commandContext) withApp(fn func(*app) error) error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
