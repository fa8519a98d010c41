package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/saipul12c/my-portofolio-sub004/pkg/config"
	"github.com/saipul12c/my-portofolio-sub004/pkg/di"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"
	"github.com/saipul12c/my-portofolio-sub004/pkg/router"
)

func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("starting chatlog server", "env", cfg.Server.Env, "storage", cfg.Storage.Path)

	container, err := di.New(cfg, log)
	if err != nil {
		log.LogError(err, "failed to initialize dependency container")
		os.Exit(1)
	}
	defer container.Close()

	// Backfill any channel logs missing from earlier layouts before the
	// gateway accepts traffic.
	materialized, err := container.Store.Reconcile()
	if err != nil {
		log.LogError(err, "reconciler failed")
		os.Exit(1)
	}
	if materialized > 0 {
		log.Info("reconciler materialized channel logs", "channels", materialized)
	}

	r := router.New(container)
	r.SetupRoutes()

	// No read/write timeouts here: the websocket surface holds
	// long-lived connections with its own deadlines.
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "forced shutdown")
	}

	log.Info("server stopped")
}
