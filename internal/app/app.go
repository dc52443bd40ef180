package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/vk/dashboot/internal/config"
	"github.com/vk/dashboot/internal/ctxlog"
	"github.com/vk/dashboot/internal/loader"
	"github.com/vk/dashboot/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	unitW      io.Writer
	logger     *slog.Logger
	registry   *registry.Registry
	config     *Config
	loader     config.Loader
	phase      atomic.Value
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It builds an isolated
// logger writing to outW and a registry; modules defaults to every
// compiled-in unit. Units write to outW as well until SetOutput is called.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	l, err := loader.New(loader.Options{
		BaseURL:      cfg.BaseURL,
		Resource:     cfg.Resource,
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure loader: %w", err)
	}
	logger.Debug("Configuration loader ready.", "url", l.URL())

	return newApp(outW, cfg, logger, l, modules...), nil
}

// NewAppWithLoader is NewApp with a caller supplied configuration loader.
func NewAppWithLoader(outW io.Writer, cfg *Config, l config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	return newApp(outW, cfg, logger, l, modules...)
}

func newApp(outW io.Writer, cfg *Config, logger *slog.Logger, l config.Loader, modules ...registry.Module) *App {
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All units registered.", "count", len(reg.Names()))

	a := &App{
		outW:     outW,
		unitW:    outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
		loader:   l,
	}
	a.setPhase(PhaseStarting)
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// SetOutput directs unit output to w, keeping it apart from the log stream.
func (a *App) SetOutput(w io.Writer) {
	a.unitW = w
}

// Output returns the writer units print to.
func (a *App) Output() io.Writer {
	return a.unitW
}

// runContext returns ctx carrying the app logger and unit output writer.
func (a *App) runContext(ctx context.Context) context.Context {
	return registry.WithOutput(ctxlog.WithLogger(ctx, a.logger), a.unitW)
}
