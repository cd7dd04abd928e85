package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/sos-checkout/internal/core/events"
	"github.com/frahmantamala/sos-checkout/internal/gateway"
	"github.com/frahmantamala/sos-checkout/internal/payment"
	paymentpg "github.com/frahmantamala/sos-checkout/internal/payment/postgres"
	"github.com/frahmantamala/sos-checkout/internal/profile"
	profilepg "github.com/frahmantamala/sos-checkout/internal/profile/postgres"
	"github.com/frahmantamala/sos-checkout/pkg/logger"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// sweeperCmd runs the expiry sweeper as a standalone process, for
// deployments that keep background work off the API instances.
var sweeperCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Start the payment expiry sweeper",
	Long:  `Cancel pending payments whose instrument deadline has passed`,
	Run: func(cmd *cobra.Command, args []string) {
		startSweeper()
	},
}

func startSweeper() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize gorm: %v\n", err)
		os.Exit(1)
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
	paymentService := payment.NewService(paymentRepo, gatewayClient, profileService, eventBus, config.Gateway.NotificationURL, lg)

	sweeper := payment.NewSweeper(paymentRepo, paymentService, config.Sweeper.Interval, config.Sweeper.BatchSize, lg)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		lg.Info("Received signal, stopping sweeper...", "signal", sig)
		cancel()
	}()

	sweeper.Run(ctx)
}
