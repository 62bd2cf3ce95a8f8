package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/troikatech/keycheck/internal/api"
	"github.com/troikatech/keycheck/internal/api/handlers"
	"github.com/troikatech/keycheck/pkg/ai"
	"github.com/troikatech/keycheck/pkg/credential"
	"github.com/troikatech/keycheck/pkg/env"
	"github.com/troikatech/keycheck/pkg/logger"
	"github.com/troikatech/keycheck/pkg/otel"
	"github.com/troikatech/keycheck/pkg/probe"
)

const version = "1.0.0"

func main() {
	cfg, err := env.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.OTELEnabled {
		shutdown, err := otel.InitTracing("keycheck", version, cfg.OTELEndpoint)
		if err != nil {
			logger.Log.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Log.Warn("Failed to flush traces", zap.Error(err))
				}
			}()
			logger.Log.Info("OpenTelemetry tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
		}
	}

	logger.Log.Info("Starting keycheck", logger.SafeFields(map[string]interface{}{
		"env":                  cfg.AppEnv,
		"port":                 cfg.AppPort,
		"text_model":           cfg.TextModel,
		"image_model":          cfg.ImageModel,
		"allowed_origins":      cfg.CORSAllowedOrigins,
		"access_user":          cfg.AccessUser,
		"access_password_hash": cfg.AccessPasswordHash,
	})...)

	loader := credential.NewLoader(cfg.EnvFile)

	// Startup only reports; every request loads the key again
	if cred, err := loader.Load(); err != nil {
		logger.Log.Warn("API key not configured yet; the page will show an error until it is", zap.Error(err))
	} else {
		logger.Log.Info("API key found", logger.MaskSecret("api_key", cred.Secret()))
	}

	timeout := time.Duration(cfg.ProbeTimeoutMs) * time.Millisecond
	probes := probe.NewService(
		probe.Config{
			TextModel:  cfg.TextModel,
			ImageModel: cfg.ImageModel,
			Timeout:    timeout,
		},
		probe.OpenAIBackend(ai.ClientOptions{BaseURL: cfg.OpenAIBaseURL}, logger.Log),
		logger.Log,
	)

	h := handlers.NewHandler(cfg, loader, probes, logger.Log)
	router := api.NewRouter(cfg, h)

	// Image generation can take well over a minute, so the write timeout is
	// generous and the per-probe bound comes from PROBE_TIMEOUT_MS.
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Log.Info("keycheck listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
