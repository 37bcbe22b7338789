package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/server"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/services"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/shared"
	"github.com/sikim-empuriabrava/Sikim-gestio-reserves-sub000/internal/web"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API until SIGINT or SIGTERM, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	auth, err := services.NewHostedAuth(config.Auth, r.httpClient)
	if err != nil {
		return err
	}

	handler, err := r.newHandler(config, db, auth)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", srv.Addr, "base_url", config.Server.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(config.Server.BaseURL + "/auth/login"); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	r.logger.Info("server stopped")
	return nil
}

// newHandler assembles the router: global middleware, login flow, metrics, health check and API routes.
func (r *Runner) newHandler(config *shared.Config, db *sql.DB, auth services.OAuthProvider) (http.Handler, error) {
	ttl, err := config.Auth.CacheTTL()
	if err != nil {
		return nil, err
	}

	var cache *server.SessionCache
	if ttl > 0 {
		cache = server.NewSessionCache(ttl)
	}

	app := web.NewApp(db, r.location(config), shared.WithLogger(r.logger, "component", "api"))

	router := server.NewBasicRouter()
	router.Use(
		server.Recover(r.logger),
		server.Logging(r.logger),
		server.Metrics(),
		server.RateLimit(config.Limits.AuthRate, config.Limits.AuthBurst, "/auth/"),
	)

	router.Handler(server.NewLoginHandler(
		auth.OAuthConfig(),
		server.CookieConfig{Name: config.Server.SessionCookie, Secure: config.Server.CookieSecure},
		cache,
		shared.WithLogger(r.logger, "component", "login"),
	))

	if path := config.Server.MetricsPath; path != "" {
		router.Handle(http.MethodGet, path, promhttp.Handler())
	}

	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			server.WriteError(w, fmt.Errorf("%w: database: %v", shared.ErrServiceUnavailable, err))
			return
		}
		server.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	app.Register(router, server.RequireSession(auth, app.Users, cache, config.Server.SessionCookie))
	return router, nil
}
