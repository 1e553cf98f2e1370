package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NimnaKs/CG-COMPOSER/internal/adapters/http/api"
	"github.com/NimnaKs/CG-COMPOSER/internal/adapters/repository"
	"github.com/NimnaKs/CG-COMPOSER/internal/app"
	"github.com/NimnaKs/CG-COMPOSER/internal/config"
	"github.com/NimnaKs/CG-COMPOSER/internal/domain/cue"
	"github.com/NimnaKs/CG-COMPOSER/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	var store repository.Store
	if cfg.StorePath != "" {
		store, err = repository.NewDiskStore(cfg.StorePath)
		if err != nil {
			os.Stderr.WriteString("failed to open document store: " + err.Error() + "\n")
			return
		}
		log.Info(ctx, "using disk document store", logger.String("path", cfg.StorePath))
	} else {
		store = repository.NewMemoryStore()
		log.Info(ctx, "using in-memory document store")
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithRegistry(cue.NewRegistry()),
		app.WithAllowList(cue.NewAllowList(cfg.AllowedActions)),
		app.WithHistoryLimit(cfg.HistoryLimit),
		app.WithAlertCapacity(cfg.AlertCapacity),
		app.WithMatchCollection(cfg.MatchCollection),
		app.WithDisplayEndpoints(cfg.BaseURL, cfg.PreviewPath, cfg.LivePath),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(context.Background(), "HTTP shutdown failed", logger.Error(err))
	}
}
