package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/authkit/internal/server"
	"github.com/florianilch/authkit/internal/userstore"
)

// App orchestrates the lifecycle of the user-registration server and its database.
type App struct {
	cfg    *Config
	store  *userstore.Store
	server *server.Server
}

// New creates a new App instance and opens the user database.
func New(ctx context.Context, cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Database.RequireDatabase(); err != nil {
		return nil, err
	}

	store, err := userstore.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	srv, err := server.New(store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &App{
		cfg:    cfg,
		store:  store,
		server: srv,
	}, nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := net.JoinHostPort(a.cfg.Server.Host, strconv.FormatUint(uint64(a.cfg.Server.Port), 10))
	shutdownFuncs := []func(context.Context) error{
		func(context.Context) error { return a.store.Close() },
	}

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting user API server", "address", address)
	serverErrCh, err := a.server.Start(gCtx, address)
	if err != nil {
		_ = a.store.Close()
		return fmt.Errorf("server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "server runtime error", "error", err)
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services in reverse start order
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
