package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/morelight/internal/config"
	"github.com/vk/morelight/internal/ctxlog"
	"github.com/vk/morelight/internal/localsession"
	"github.com/vk/morelight/internal/orchestrator"
	"github.com/vk/morelight/internal/scheduler"
	"github.com/vk/morelight/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	scene    *config.Scene
	battery  *config.Battery
	writer   config.Writer
	sessions session.SessionFactory

	registry *prometheus.Registry
	metrics  *scheduler.Metrics

	httpServer *http.Server
	sched      atomic.Pointer[scheduler.Scheduler]

	mu     sync.Mutex
	report *orchestrator.Report
}

// Option customizes an App.
type Option func(*App)

// WithSessionFactory replaces the default in-memory session factory.
func WithSessionFactory(f session.SessionFactory) Option {
	return func(a *App) { a.sessions = f }
}

// NewApp is the constructor for the main application. It loads the scene
// and battery up front and returns a fully initialized App instance with its
// own isolated logger and metrics registry.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, writer config.Writer, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	scene, err := loader.LoadScene(ctx, cfg.ScenePath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load scene: %w", err))
	}
	logger.Debug("Scene loaded.", "path", cfg.ScenePath, "sets", len(scene.Sets))

	battery := config.DefaultBattery()
	if cfg.BatteryPath != "" {
		battery, err = loader.LoadBattery(ctx, cfg.BatteryPath)
		if err != nil {
			panic(fmt.Errorf("failed to load battery: %w", err))
		}
		logger.Debug("Battery loaded.", "path", cfg.BatteryPath)
	}
	logger.Debug("Battery ready.", "controls", len(battery.Controls), "remaps", len(battery.Remaps))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	a := &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		scene:    scene,
		battery:  battery,
		writer:   writer,
		sessions: &localsession.SessionFactory{},
		registry: reg,
		metrics:  scheduler.NewMetrics(reg),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Report returns the report of the last run, or nil before Run.
func (a *App) Report() *orchestrator.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.report
}

// Registry returns the application's metrics registry. This is primarily
// for testing.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Battery returns the battery the app runs.
func (a *App) Battery() *config.Battery {
	return a.battery
}
