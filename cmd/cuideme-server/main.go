package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cuideme/cuideme/internal/config"
	"github.com/cuideme/cuideme/internal/domain/ingest"
	"github.com/cuideme/cuideme/internal/domain/message"
	"github.com/cuideme/cuideme/internal/domain/patient"
	"github.com/cuideme/cuideme/internal/domain/professional"
	"github.com/cuideme/cuideme/internal/platform/auth"
	"github.com/cuideme/cuideme/internal/platform/classify"
	"github.com/cuideme/cuideme/internal/platform/db"
	"github.com/cuideme/cuideme/internal/platform/middleware"
	"github.com/cuideme/cuideme/internal/platform/websocket"
	"github.com/cuideme/cuideme/internal/platform/whatsapp"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cuideme-server",
		Short: "Patient monitoring relay server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Outbound messaging
	var sender whatsapp.Sender
	if cfg.WhatsAppToken != "" {
		sender = whatsapp.NewClient(cfg.WhatsAppAPIBase, cfg.PhoneNumberID, cfg.WhatsAppToken)
	} else {
		logger.Warn().Msg("WHATSAPP_TOKEN not set; outbound messages are logged and dropped")
		sender = whatsapp.NewNopSender(logger)
	}

	// Classifier
	classifier := classify.New(cfg.AnthropicAPIKey, logger)
	if !cfg.ClassifierEnabled() {
		logger.Warn().Msg("ANTHROPIC_API_KEY not set; message classification is disabled")
	}

	// Live broadcast hub
	hub := websocket.NewHub()

	// Repositories and services
	patientRepo := patient.NewRepoPG(pool)
	metricRepo := patient.NewMetricRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, metricRepo)

	messageRepo := message.NewRepoPG(pool)
	messageSvc := message.NewService(messageRepo, patientRepo, sender, hub)

	professionalRepo := professional.NewRepoPG(pool)
	professionalSvc := professional.NewService(professionalRepo, []byte(cfg.JWTSecret),
		time.Duration(cfg.TokenTTLMinutes)*time.Minute)

	pipeline := ingest.NewPipeline(patientSvc, messageSvc, classifier, sender,
		cfg.WelcomeMessage, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Public routes: auth, webhook, live subscriptions
	professional.NewHandler(professionalSvc).RegisterRoutes(e)
	ingest.NewHandler(pipeline, cfg.VerifyToken, logger).RegisterRoutes(e)
	websocket.NewHandler(hub).RegisterRoutes(e)

	// Operator API behind bearer auth
	api := e.Group("/api", auth.Middleware([]byte(cfg.JWTSecret)))
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	message.NewHandler(messageSvc).RegisterRoutes(api)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
