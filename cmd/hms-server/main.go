package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medicare/hms/internal/config"
	"github.com/medicare/hms/internal/domain/appointment"
	"github.com/medicare/hms/internal/domain/dashboard"
	"github.com/medicare/hms/internal/domain/emergency"
	"github.com/medicare/hms/internal/domain/patient"
	"github.com/medicare/hms/internal/domain/prescription"
	"github.com/medicare/hms/internal/platform/auth"
	"github.com/medicare/hms/internal/platform/gateway"
	"github.com/medicare/hms/internal/platform/geo"
	"github.com/medicare/hms/internal/platform/middleware"
	"github.com/medicare/hms/internal/platform/notification"
	"github.com/medicare/hms/pkg/draft"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital Management API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

const version = "0.1.0"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("hms-server " + version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HMS API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// devSessionToken authenticates requests against the in-memory gateway when
// no remote backend is configured. Development only.
const devSessionToken = "dev-token"

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Gateway: remote backend when configured, in-memory otherwise. The
	// in-memory gateway is only acceptable in development.
	var gw gateway.Gateway
	if cfg.GatewayURL != "" {
		gw = gateway.NewClient(gateway.ClientConfig{
			BaseURL:   cfg.GatewayURL,
			AnonKey:   cfg.GatewayAnonKey,
			JWTSecret: cfg.GatewayJWTKey,
		})
		logger.Info().Str("url", cfg.GatewayURL).Msg("using remote gateway")
	} else {
		if !cfg.IsDev() {
			logger.Fatal().Msg("GATEWAY_URL is required outside development")
		}
		mem := gateway.NewMemory()
		mem.SetDefaults(appointment.Table, gateway.Record{"status": appointment.StatusScheduled})
		mem.AddSession(devSessionToken, &gateway.Session{UserID: "dev-user", Email: "dev@localhost"})
		gw = mem
		logger.Warn().Str("token", devSessionToken).Msg("no GATEWAY_URL set, using in-memory gateway")
	}

	// Geocoder
	var geocoder geo.Geocoder = geo.NopGeocoder{}
	if cfg.GeocodingEnabled() {
		geocoder = geo.NewGoogleGeocoder(cfg.GeocodingAPIKey, "")
		logger.Info().Msg("reverse geocoding enabled")
	} else {
		logger.Warn().Msg("GEOCODING_API_KEY not set; locations stay as raw coordinates")
	}
	resolver := geo.NewResolver(geocoder)

	// User-facing feedback goes to the log in this deployment
	notifier := notification.NewLogNotifier(logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	// API group. Bearer tokens are extracted here and verified per request
	// by the gateway, so unauthenticated emergency dispatch still works.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(auth.Extract())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	// Dashboard counters refresh whenever a form submission lands
	dashboardSvc := dashboard.NewService(gw, logger)
	refresh := draft.WithRefresh(dashboardSvc.Refresh)
	timeout := draft.WithTimeout(cfg.SubmitTimeout())

	patientSvc := patient.NewService(gw, notifier, timeout, refresh)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	prescriptionSvc := prescription.NewService(gw, cfg.GatewayBucket, notifier, timeout, refresh)
	prescription.NewHandler(prescriptionSvc).RegisterRoutes(apiV1)

	appointmentSvc := appointment.NewService(gw, notifier, timeout, refresh)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)

	dashboard.NewHandler(dashboardSvc).RegisterRoutes(apiV1)

	composer := emergency.NewComposer(cfg.WhatsAppNumber, cfg.RequireLocation)
	emergency.NewHandler(composer, resolver, notifier).RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
