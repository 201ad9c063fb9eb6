// cmd/api/server.go
// This file contains the serve() method which starts the HTTP server and
// shuts it down gracefully when its context is cancelled.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// serve runs the HTTP server until ctx is cancelled, then gives in-flight
// requests the configured shutdown timeout to finish. A checkout that is
// mid-transaction either commits or rolls back; it is never left half done.
func (app *applicationDependencies) serve(ctx context.Context) error {
	// Configure the HTTP server. Its own error log goes through slog so
	// every line the process writes has the same format.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	// listenErr receives whatever ListenAndServe returns. It is buffered
	// so the goroutine can exit even if nobody reads it.
	listenErr := make(chan error, 1)

	// Background goroutine: accept connections until Shutdown is called.
	go func() {
		app.logger.Info("starting server",
			"address", srv.Addr,
			"environment", app.config.environment,
			"store", app.config.store,
			"version", appVersion,
		)
		listenErr <- srv.ListenAndServe()
	}()

	// Block until the listener fails (port in use, for example) or the
	// context is cancelled by SIGINT/SIGTERM in main or by a test.
	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	app.logger.Info("shutting down server", "cause", context.Cause(ctx).Error())

	// Shutdown stops accepting new connections and waits for active
	// requests to finish, up to the shutdown timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// After Shutdown, ListenAndServe returns ErrServerClosed; anything else
	// is a real failure.
	if err := <-listenErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	app.logger.Info("server stopped", "address", srv.Addr)
	return nil
}
