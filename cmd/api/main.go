package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gardenDesignAi/internal/app"
	"gardenDesignAi/internal/auth"
	"gardenDesignAi/internal/config"
	"gardenDesignAi/internal/logging"
	"gardenDesignAi/internal/server"
)

func main() {
	cfg, cfgErr := config.Load()
	if cfgErr != nil && !app.IsConfigError(cfgErr) {
		log.Fatalf("failed to load config: %v", cfgErr)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, cfg, cfgErr, logger)
	if err != nil {
		logger.Fatal("failed to wire providers", zap.Error(err))
	}
	go rt.Store.Run(ctx, time.Minute)

	gate := auth.Gate{
		PasswordHash: cfg.Auth.PasswordHash,
		Sessions: auth.SessionManager{
			Secret:       []byte(cfg.Auth.SessionSecret),
			SecureCookie: cfg.Auth.SecureCookie,
		},
	}
	if gate.Enabled() && cfg.Auth.SessionSecret == "" {
		logger.Fatal("ACCESS_PASSWORD_HASH is set but SESSION_SECRET is empty")
	}

	var static http.Handler
	if info, err := os.Stat("web"); err == nil && info.IsDir() {
		static = http.FileServer(http.Dir("web"))
	}

	srv := server.New(server.Options{
		Port:         cfg.Port,
		WriteTimeout: cfg.HTTPWriteTimeout,
		Store:        rt.Store,
		Engine:       rt.Engine,
		Events:       rt.Events,
		Gate:         gate,
		Metrics:      rt.Metrics,
		Logger:       logger,
		Static:       static,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("server ready",
		zap.String("addr", srv.Addr),
		zap.Bool("auth", gate.Enabled()),
		zap.String("renderer", cfg.Renderer),
		zap.String("interpreter", cfg.Interpreter))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}
