// Package app assembles the Gatehouse demo application: the route table,
// session manager, view renderer, and metrics exposition, mounted behind a
// single http.Handler.
package app

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/gatehouse-http/gatehouse/internal/config"
	"github.com/gatehouse-http/gatehouse/pkg/metrics"
	"github.com/gatehouse-http/gatehouse/pkg/router"
	"github.com/gatehouse-http/gatehouse/pkg/session"
)

// App is the assembled application.
type App struct {
	logger  *zap.Logger
	router  *router.Router
	metrics *metrics.Metrics
	handler http.Handler
}

// New builds the application from configuration. The session store is
// injected so main can choose between the memory, Redis, and SQL backends.
func New(cfg *config.Config, logger *zap.Logger, store session.Store) (*App, error) {
	lifetime, err := cfg.SessionLifetime()
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(session.Config{
		CookieName: cfg.Session.CookieName,
		Lifetime:   lifetime,
		Store:      store,
		Logger:     logger,
	})

	renderer, err := NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("gatehouse")
	}

	table := newRouteTable(sessions, renderer, cfg.Upload.MaxBytes)

	rt := router.NewRouter(router.Config{
		ServiceName:        "gatehouse",
		Logger:             logger,
		Routes:             table.routes(),
		Sessions:           sessions,
		MaxBodySize:        cfg.Upload.MaxBytes,
		EnableTraceLogging: cfg.Trace.Enabled,
		TraceIDBufferSize:  cfg.Trace.BufferSize,
		Metrics:            m,
	})

	mux := http.NewServeMux()
	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}
	mux.Handle("/", rt)

	return &App{
		logger:  logger,
		router:  rt,
		metrics: m,
		handler: mux,
	}, nil
}

// Handler returns the root http.Handler: the metrics endpoint when enabled,
// and the route table for everything else.
func (a *App) Handler() http.Handler { return a.handler }

// Shutdown drains in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.router.Shutdown(ctx)
}
