package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deliverit/voice-assistant/internal/audio"
	"github.com/deliverit/voice-assistant/internal/config"
	"github.com/deliverit/voice-assistant/internal/observability"
	"github.com/deliverit/voice-assistant/internal/session"
	"github.com/deliverit/voice-assistant/internal/shop"
	"github.com/deliverit/voice-assistant/internal/speech"
	"github.com/deliverit/voice-assistant/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("shop_base_url", cfg.ShopBaseURL).
		Str("log_level", cfg.LogLevel).
		Bool("playback_enabled", cfg.PlaybackEnabled).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice Assistant Service starting")

	// Shared collaborators. Each session builds its own aggregator and
	// pipeline on top of these.
	synth := tts.NewElevenLabsClient(cfg)
	shopClient := shop.NewClient(cfg)

	var sink speech.Sink = audio.NewNopSink()
	if cfg.PlaybackEnabled {
		sink = audio.NewSpeakerSink()
	}

	deps := session.Deps{
		Synth:    synth,
		Fetch:    tts.NewHTTPFetcher(),
		Decode:   audio.NewClipDecoder(),
		Sink:     sink,
		Fallback: tts.NewLocalSynthesizer(logger),
		Commerce: shopClient,
	}

	// Create HTTP server
	mux := http.NewServeMux()

	// Assistant WebSocket endpoint
	mux.HandleFunc("/session", session.Handler(cfg, deps))

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint - dependency checks are closures to avoid import cycles
	checks := map[string]observability.HealthCheckFunc{
		"elevenlabs": func(ctx context.Context) (bool, error) {
			// Validates config only; no synthesis call to avoid API costs
			if cfg.ElevenLabsAPIKey == "" {
				return false, fmt.Errorf("ELEVENLABS_API_KEY is not set")
			}
			return true, nil
		},
		"shop": func(ctx context.Context) (bool, error) {
			if err := shopClient.Ping(ctx); err != nil {
				return false, err
			}
			return true, nil
		},
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/session", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server stopped")
}
