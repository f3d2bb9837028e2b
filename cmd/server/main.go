// Command server hosts the path-generation and model metadata endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ivlev/prompt2path/internal/api"
	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/internal/engine"
	"github.com/ivlev/prompt2path/internal/metadata"
	"github.com/ivlev/prompt2path/internal/system"
	"github.com/ivlev/prompt2path/pkg/logger"
	"github.com/ivlev/prompt2path/pkg/tracer"
	"github.com/joho/godotenv"
)

// Injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "config file (default configs/config.yaml)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Version == "" || cfg.App.Version == "v0.0.0" {
		cfg.App.Version = Version
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()
	logger.Info(ctx, "starting server", "version", Version, "build_time", BuildTime, "env", cfg.App.Env)

	system.InitResourceLimits(ctx)

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.Error(ctx, "failed to shutdown tracer", err)
		}
	}()

	stack, err := metadata.Open(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to open metadata store", err)
	}
	defer stack.Close()

	pipeline := engine.New(engine.Deps{Store: stack.Store})
	if err := pipeline.Initialize(ctx, cfg); err != nil {
		logger.Fatal(ctx, "failed to initialize pipeline", err)
	}

	required := map[string]api.Pinger{}
	optional := map[string]api.Pinger{}
	if stack.Postgres != nil {
		required["postgres"] = stack.Postgres
	}
	if stack.Redis != nil {
		optional["redis"] = stack.Redis
	}

	router := api.New(cfg, api.Deps{
		Paths:  pipeline,
		Store:  stack.Store,
		Health: api.NewHealthHandler(cfg.App.Version, required, optional),
	})

	srv := &http.Server{
		Addr:         cfg.Server.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "http server starting", "addr", srv.Addr, "provider", pipeline.Provider())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "http server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", err)
	}
	logger.Info(ctx, "server exited")
}
