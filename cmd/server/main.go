package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livemon/internal/core/services"
	httphandlers "livemon/internal/handlers/http"
	"livemon/internal/infrastructure/hub"
	lk "livemon/internal/infrastructure/livekit"
	"livemon/internal/infrastructure/middleware"
	"livemon/internal/infrastructure/monitoring"
	"livemon/internal/infrastructure/simulator"
	"livemon/pkg/config"
	"livemon/pkg/logger"
	"livemon/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/root/configs/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "livemon",
		JaegerURL:   cfg.Tracing.JaegerURL,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Errorw("Error shutting down tracer provider", "error", err)
		}
	}()

	// Initialize the pipeline
	prometheusCollector := monitoring.NewPrometheusCollector()

	metricsService := services.NewMetricsService(cfg.Metrics.RateWindow, cfg.Metrics.HistoryCapacity, log)
	alertService := services.NewAlertService(services.Thresholds{
		DisconnectRatePerMinute: cfg.Alerts.DisconnectRatePerMinute,
		MaxParticipants:         cfg.Alerts.MaxParticipants,
		MinAvgQuality:           cfg.Alerts.MinAvgQuality,
		MaxRoomDuration:         cfg.Alerts.MaxRoomDuration,
	}, cfg.Alerts.ResolvedRetention, log)
	broadcastHub := hub.NewHub(cfg.Hub.ObserverQueueSize, log)

	coordinator := services.NewCoordinator(
		metricsService,
		alertService,
		broadcastHub,
		cfg.Metrics.TickInterval,
		cfg.Hub.HeartbeatInterval,
		prometheusCollector,
		log,
	)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	go coordinator.Run(runCtx)

	// Event source: local simulator, or the LiveKit poller when upstream
	// credentials are configured.
	if cfg.Simulator.Enabled {
		generator := simulator.NewGenerator(coordinator, metricsService, cfg.Simulator.TargetRooms, cfg.Simulator.TickInterval, log)
		go generator.Run(runCtx)
		log.Infow("Event simulator enabled", "target_rooms", cfg.Simulator.TargetRooms)
	} else if cfg.LiveKit.URL != "" && cfg.LiveKit.APIKey != "" {
		poller := lk.NewPoller(
			cfg.LiveKit.URL,
			cfg.LiveKit.APIKey,
			cfg.LiveKit.APISecret,
			coordinator,
			metricsService,
			cfg.LiveKit.PollInterval,
			log,
		)
		go poller.Run(runCtx)
		log.Infow("LiveKit poller enabled", "url", cfg.LiveKit.URL)
	} else {
		log.Warn("No event source configured, serving webhook ingress only")
	}

	// Initialize HTTP handlers
	dashboardHandler := httphandlers.NewDashboardHandler(metricsService, alertService, coordinator, broadcastHub, cfg.Simulator.Enabled)
	webhookHandler := httphandlers.NewWebhookHandler(coordinator, lk.NewTranslator(log), log)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Global HTTP rate limiting (if enabled)
	router.Use(middleware.NewRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	dashboardHandler.SetupRoutes(router)
	webhookHandler.SetupRoutes(router)

	// WebSocket observer endpoint
	wsOpts := hub.WSOptions{
		PingInterval: cfg.Hub.PingInterval,
		PongTimeout:  cfg.Hub.PongTimeout,
		WriteTimeout: cfg.Hub.WriteTimeout,
	}
	router.GET("/ws", func(c *gin.Context) {
		broadcastHub.ServeWS(c.Writer, c.Request, wsOpts)
	})

	// Readiness endpoint
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ready",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting LiveMon server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down LiveMon server...")

	// Stop event sources and the pipeline loop before closing the listener
	cancelRun()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	log.Info("LiveMon server stopped")
}
