package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/omniscrape/api"
	"github.com/use-agent/omniscrape/cache"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction REST API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// ── 1. Load configuration and logging ──────────────────────────
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogger(cfg.Log, "json")
	slog.Info("omniscrape starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"headless", cfg.Browser.Headless,
	)

	// ── 2. Build the engine; the browser launches on first use ─────
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// ── 3. Setup router ────────────────────────────────────────────
	var cc *cache.Cache
	if cfg.Cache.TTL > 0 {
		cc = cache.New(cfg.Cache.TTL)
	}
	router := api.NewRouter(a.dispatcher, a.browserStatus, cfg, cc, time.Now())

	// ── 4. Start HTTP server ───────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	// ── 5. Graceful shutdown ───────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give in-flight runs 5 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// a.Close() runs via defer: persists cookies and kills Chrome.
	slog.Info("omniscrape stopped")
	return nil
}
