package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/helpme/internal/config"
	"github.com/specialistvlad/helpme/internal/ctxlog"
	"github.com/specialistvlad/helpme/internal/registry"
	"github.com/specialistvlad/helpme/internal/relay"
	"github.com/specialistvlad/helpme/internal/watch"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	ctx      context.Context
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	registry *registry.Registry
	relay    *relay.Relay

	httpServer *http.Server
}

// New is the constructor for the main application. It loads the help files
// once for their templates and entries, and builds the registry from them.
func New(outW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.DBPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load help database: %w", err)
	}
	logger.Debug("Help files loaded.", "entries", len(model.Database), "templates", len(model.Templates))

	opts := make([]registry.Option, 0, len(model.Templates))
	for name, src := range model.Templates {
		opts = append(opts, registry.WithTemplate(name, src))
	}
	reg := registry.New(ctx, registry.StaticProvider(model.Database), opts...)

	if cfg.Locale != "" {
		reg.SetLocale(cfg.Locale)
	}
	if cfg.Hidden {
		reg.SetVisible(false)
	}

	return &App{
		outW:     outW,
		ctx:      ctx,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		registry: reg,
		relay:    relay.New(ctx, reg),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Run waits for the initial database, starts the watcher and the HTTP server
// when configured, and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.relay.Close()

	if err := a.registry.Ready(ctx); err != nil {
		return fmt.Errorf("initial help database: %w", err)
	}
	a.logger.Info("📚 Help database ready.", "locales", a.registry.Locales(), "visible", a.registry.IsVisible())

	if a.config.Watch {
		w := watch.New(a.registry, a.loader, a.config.DBPaths)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
		a.logger.Info("👀 Watching help files for changes.", "paths", a.config.DBPaths)
	}

	if err := a.startServer(); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("Shutting down.")

	if err := a.closeServer(); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}
