package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/sos-checkout/internal"
	"github.com/frahmantamala/sos-checkout/internal/core/events"
	"github.com/frahmantamala/sos-checkout/internal/gateway"
	"github.com/frahmantamala/sos-checkout/internal/payment"
	paymentpg "github.com/frahmantamala/sos-checkout/internal/payment/postgres"
	"github.com/frahmantamala/sos-checkout/internal/profile"
	profilepg "github.com/frahmantamala/sos-checkout/internal/profile/postgres"
	"github.com/frahmantamala/sos-checkout/internal/qr"
	"github.com/frahmantamala/sos-checkout/internal/transport"
	"github.com/frahmantamala/sos-checkout/internal/transport/rest"
	"github.com/frahmantamala/sos-checkout/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle checkout, webhook and profile requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Router  *chi.Mux
	Intake  *payment.Intake
	Sweeper *payment.Sweeper
	Logger  *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	go deps.Sweeper.Run(sweeperCtx)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		stopSweeper()
		deps.Intake.Shutdown()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		stopSweeper()
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	eventBus := events.NewEventBus(lg)

	paymentRepo := paymentpg.NewPaymentRepository(gormDB)
	profileRepo := profilepg.NewProfileRepository(gormDB)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:       config.Gateway.BaseURL,
		AccessToken:   config.Gateway.AccessToken,
		WebhookSecret: config.Gateway.WebhookSecret,
		Timeout:       config.Gateway.Timeout,
	}, lg)

	profileService := profile.NewService(profileRepo, eventBus, config.QR.PublicBaseURL, lg)

	qrService := qr.NewService([]byte(config.QR.SigningSecret), config.QR.TokenTTL, config.QR.PublicBaseURL, profileService, lg)
	qrService.RegisterEventHandlers(eventBus)

	paymentService := payment.NewService(paymentRepo, gatewayClient, profileService, eventBus, config.Gateway.NotificationURL, lg)

	intake := payment.NewIntake(payment.IntakeConfig{
		MaxWorkers:   config.Webhook.MaxWorkers,
		JobQueueSize: config.Webhook.JobQueueSize,
		JobTimeout:   config.Webhook.JobTimeout,
	}, gatewayClient, paymentService, lg)

	sweeper := payment.NewSweeper(paymentRepo, paymentService, config.Sweeper.Interval, config.Sweeper.BatchSize, lg)

	baseHandler := transport.NewBaseHandler(lg)
	paymentHandler := payment.NewHandler(baseHandler, paymentService, lg)
	webhookHandler := payment.NewWebhookHandler(baseHandler, gatewayClient, intake, lg)
	profileHandler := profile.NewHandler(baseHandler, profileService, lg)
	qrHandler := qr.NewHandler(baseHandler, qrService, profileService, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, paymentHandler, webhookHandler, profileHandler, qrHandler, lg)

	return &Dependencies{
		Config:  config,
		DB:      db,
		Router:  router,
		Intake:  intake,
		Sweeper: sweeper,
		Logger:  lg,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
