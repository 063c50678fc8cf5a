package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/clerapp/platform/pkg/common/config"
	"github.com/clerapp/platform/pkg/common/database"
	"github.com/clerapp/platform/pkg/common/kafka"
	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/clerapp/platform/pkg/common/models"
	"github.com/clerapp/platform/pkg/dlp"
	"github.com/clerapp/platform/pkg/gateway/auth"
	"github.com/clerapp/platform/pkg/gateway/httpclient"
	"github.com/clerapp/platform/pkg/gateway/middleware"
	"github.com/clerapp/platform/pkg/gateway/routes"
	"github.com/clerapp/platform/pkg/prescription"
	"github.com/clerapp/platform/pkg/profile"
	"github.com/clerapp/platform/pkg/report"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cler-server",
		Short: "Cler profile, prescription and report API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(eventsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the profiles and prescriptions tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := connectDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := migrate(db); err != nil {
				return err
			}
			logger.Log.Info("Migrations applied")
			return nil
		},
	}
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the PDF receipt of one prescription to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			prescriptionID, _ := cmd.Flags().GetString("prescription-id")
			out, _ := cmd.Flags().GetString("out")
			if prescriptionID == "" {
				return fmt.Errorf("--prescription-id is required")
			}

			cfg := config.Load()
			db, err := connectDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			labels, err := report.LoadLabels(cfg.ReportLabelsPath)
			if err != nil {
				return err
			}
			generator := report.NewGenerator(
				prescription.NewService(prescription.NewRepository(db), nil),
				profile.NewService(profile.NewRepository(db), nil),
				labels,
			)
			pdf, err := generator.Generate(cmd.Context(), prescriptionID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			logger.Log.WithFields(map[string]interface{}{
				"prescription_id": prescriptionID,
				"path":            out,
				"bytes":           len(pdf),
			}).Info("Report written")
			return nil
		},
	}
	cmd.Flags().String("prescription-id", "", "Prescription to render")
	cmd.Flags().String("out", report.Filename, "Output file")
	return cmd
}

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the domain event stream",
	}

	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print domain events from a topic as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			topic, _ := cmd.Flags().GetString("topic")
			group, _ := cmd.Flags().GetString("group")
			if topic == "" {
				topic = cfg.PrescriptionTopic
			}
			if group == "" {
				group = cfg.KafkaGroupID + "-tail"
			}
			if len(cfg.KafkaBrokers) == 0 {
				return fmt.Errorf("KAFKA_BROKERS is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer := kafka.NewConsumer(cfg.KafkaBrokers, topic, group)
			defer consumer.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			err := consumer.Consume(ctx, func(_ context.Context, event models.Event) error {
				return enc.Encode(event)
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	tailCmd.Flags().String("topic", "", "Topic to read (default: the prescription topic)")
	tailCmd.Flags().String("group", "", "Consumer group id")
	cmd.AddCommand(tailCmd)
	return cmd
}

func runServer() error {
	cfg := config.Load()
	ctx := context.Background()

	db, err := connectDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := migrate(db); err != nil {
		return err
	}

	profilePublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.ProfileTopic)
	prescriptionPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.PrescriptionTopic)
	defer closePublisher(profilePublisher)
	defer closePublisher(prescriptionPublisher)

	profileService := profile.NewService(profile.NewRepository(db), profilePublisher)
	rules, err := dlp.LoadRules(cfg.DLPRulesPath)
	if err != nil {
		return err
	}
	redactor, err := dlp.NewRedactor(rules)
	if err != nil {
		return fmt.Errorf("compile redaction rules: %w", err)
	}
	prescriptionService := prescription.NewService(prescription.NewRepository(db), prescriptionPublisher).WithRedactor(redactor)

	labels, err := report.LoadLabels(cfg.ReportLabelsPath)
	if err != nil {
		return err
	}
	generator := report.NewGenerator(prescriptionService, profileService, labels)

	sessions, err := auth.NewSessionManager(sessionSecret(cfg), cfg.SessionIssuer, cfg.SessionTTL)
	if err != nil {
		return err
	}

	ops := routes.NewOpsHandler().AddCheck("database", routes.DatabaseCheck(db))

	// Initialize OIDC authenticator
	var provider routes.Provider
	var states auth.StateStore = auth.NewMemoryStateStore(cfg.OIDCStateTTL)
	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL, httpclient.New(cfg.OutboundTimeout))
	if err != nil {
		logger.Log.WithError(err).Warn("OIDC authentication not configured, login routes disabled")
	} else {
		provider = oidcAuth
		if cfg.StateStore == "redis" {
			client, err := database.GetRedis(ctx, cfg)
			if err != nil {
				logger.Log.WithError(err).Warn("Redis unavailable, keeping OAuth state in memory")
			} else {
				defer database.CloseRedis()
				states = auth.NewRedisStateStore(client, cfg.OIDCStateTTL)
				ops.AddCheck("redis", routes.RedisCheck(client))
			}
		}
	}

	// Setup router
	router := mux.NewRouter()

	// Middleware
	router.Use(middleware.RouteLabel)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	ops.Register(router)
	routes.NewAuthHandler(provider, states, sessions, profileService, cfg.CookieSecure).Register(router)

	// API routes
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	profile.NewHandler(profileService).Register(apiRouter)
	prescription.NewHandler(prescriptionService).Register(apiRouter)
	report.NewHandler(generator).Register(apiRouter)

	// Logging wraps the gate so redirects are recorded. CORS answers preflights
	// before the gate, which would otherwise redirect them. The gate runs
	// before routing so unknown paths are redirected too.
	handler := middleware.Recovery(middleware.Logging(middleware.CORS(cfg.CORSOrigins)(
		middleware.Identify(sessions)(middleware.AccessGate(router)))))

	// Server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Cler server started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Cler server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Cler server stopped")
	return nil
}

// connectDatabase waits for the database to accept connections.
func connectDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	var db *gorm.DB
	err := httpclient.Retry(ctx, "database", 5, 500*time.Millisecond, func() error {
		conn, err := database.Get(cfg)
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := profile.NewRepository(db).AutoMigrate(); err != nil {
		return fmt.Errorf("migrate profiles: %w", err)
	}
	if err := prescription.NewRepository(db).AutoMigrate(); err != nil {
		return fmt.Errorf("migrate prescriptions: %w", err)
	}
	return nil
}

// sessionSecret falls back to a per-process random key, which invalidates
// every session on restart.
func sessionSecret(cfg *config.Config) string {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logger.Log.WithError(err).Fatal("Failed to generate session secret")
	}
	logger.Log.Warn("SESSION_SECRET not set, using an ephemeral key")
	return hex.EncodeToString(buf)
}

func closePublisher(p kafka.Publisher) {
	if producer, ok := p.(*kafka.Producer); ok {
		if err := producer.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
}
