// Package app wires configuration, storage and services into a running
// anthem engine. Every command builds one App and closes it on exit.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"anthemengine/internal/anthem"
	"anthemengine/internal/config"
	"anthemengine/internal/domain"
	"anthemengine/internal/httpapi"
	mcpserver "anthemengine/internal/mcp"
	"anthemengine/internal/records"
	"anthemengine/internal/records/sources"
	"anthemengine/internal/secret"
	"anthemengine/internal/service"
	"anthemengine/internal/storage"
)

// App holds the long-lived services behind every surface.
type App struct {
	Config *config.Config
	Logger logrus.FieldLogger

	DB        *storage.DB
	Sources   *service.SourceService
	Anthems   *service.AnthemService
	Schedules *service.ScheduleService
}

// Options customises New. Zero values select the defaults.
type Options struct {
	// Secrets overrides the platform secret store.
	Secrets secret.SecretStore
	// Emitter overrides the event emitter; LogEmitter by default.
	Emitter service.EventEmitter
}

// New opens the local database and builds the services for cfg.
func New(cfg *config.Config, logger logrus.FieldLogger, getenv func(string) string, opts Options) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	secrets := opts.Secrets
	if secrets == nil {
		secrets = secret.Default(getenv)
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = service.LogEmitter{Logger: logger}
	}

	a := &App{Config: cfg, Logger: logger, DB: db}
	a.Sources = service.NewSourceService(storage.NewSourceStore(db), secrets, emitter, logger)

	// Wire the database record source to stored connections.
	sources.SetDBProvider(a.Sources)

	var fetcher records.Fetcher
	if cfg.Source.Type != "" {
		bound, err := records.Bind(cfg.Source.Type, cfg.Source.Config)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		fetcher = bound
	} else if cfg.Generator.Mode == domain.ModePipeline {
		logger.Warn("no record source configured; generation will fail until source.type is set")
	}

	retriever := records.NewRetriever(fetcher, cfg.Objects, logger)
	composer := anthem.NewComposer(cfg.Generator.SampleBudget, logger)
	a.Anthems = service.NewAnthemService(retriever, composer, storage.NewAnthemStore(db), emitter, logger, service.AnthemOptions{
		Mode:              cfg.Generator.Mode,
		PlaceholderLength: cfg.Generator.PlaceholderLength,
		SourceType:        cfg.Source.Type,
	})
	a.Schedules = service.NewScheduleService(a.Anthems, logger)
	return a, nil
}

// HTTP builds the HTTP API server.
func (a *App) HTTP() *httpapi.Server {
	return httpapi.New(a.Anthems, a.Logger)
}

// MCP builds the MCP server.
func (a *App) MCP() *mcpserver.Server {
	return mcpserver.New(mcpserver.Deps{Anthems: a.Anthems, Sources: a.Sources, Logger: a.Logger})
}

// StartSchedules starts the configured cron schedules and file watches.
// It reports whether anything was started.
func (a *App) StartSchedules(ctx context.Context) (bool, error) {
	if len(a.Config.Schedules) == 0 && len(a.Config.Watch) == 0 {
		return false, nil
	}
	if err := a.Schedules.Start(ctx, a.Config.Schedules, a.Config.Watch); err != nil {
		return false, err
	}
	return true, nil
}

// Close stops background work, waits for in-flight generations and closes
// connectors and the database.
func (a *App) Close(ctx context.Context) error {
	a.Schedules.Stop()
	a.Schedules.WaitRunning(ctx)
	a.Anthems.WaitRunning(ctx)
	a.Sources.Close()
	sources.SetDBProvider(nil)
	return a.DB.Close()
}
