// Command gatehouse runs the demo web application.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gatehouse-http/gatehouse/internal/app"
	"github.com/gatehouse-http/gatehouse/internal/config"
	"github.com/gatehouse-http/gatehouse/pkg/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*configPath, logger); err != nil {
		logger.Fatal("gatehouse exited", zap.Error(err))
	}
}

func run(configPath string, logger *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := newSessionStore(cfg, logger)
	if err != nil {
		return err
	}

	application, err := app.New(cfg, logger, store)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: application.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Warn("route table drain incomplete", zap.Error(err))
	}
	return server.Shutdown(shutdownCtx)
}

// newSessionStore picks the session backend: Redis when an address is
// configured, the in-memory store otherwise.
func newSessionStore(cfg *config.Config, logger *zap.Logger) (session.Store, error) {
	if cfg.Session.RedisAddr == "" {
		return session.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info("using redis session store", zap.String("addr", cfg.Session.RedisAddr))
	return session.NewRedisStore(client, ""), nil
}
