package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tour-booking/cmd"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/gateway"
	"tour-booking/internal/mail"
	"tour-booking/internal/usecase"
	"tour-booking/internal/wire"
	"tour-booking/internal/worker"
	"tour-booking/pkg/database"
	"tour-booking/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	logger.Info("Database connected successfully")

	repos := repository.NewRepository(db, logger)

	deps := usecase.Dependencies{
		Gateway: gateway.NewClient(
			config.Gateway.BaseURL,
			config.Gateway.Username,
			config.Gateway.Password,
			config.Gateway.Timeout,
			logger,
		),
		Verifier: gateway.NewHMACSHA256Verifier(config.Gateway.SigningSecrets()),
		Notifier: newNotifier(config.Mail, logger),
	}

	app := wire.Wiring(db, repos, deps, config, logger)
	outbox := worker.NewOutboxWorker(app.Service.Dispatcher, config.Worker.OutboxInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cmd.APIServer(gctx, app.Router, config.App.Port, logger)
	})
	g.Go(func() error {
		return outbox.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
		return
	}

	logger.Info("Application stopped")
}

func newNotifier(config utils.MailConfig, logger *zap.Logger) mail.Notifier {
	if config.APIKey == "" || config.From == "" {
		logger.Warn("Mail provider not configured, confirmations are only logged")
		return mail.NewLogNotifier(logger)
	}

	return mail.NewBrevoNotifier(mail.BrevoConfig{
		BaseURL:    config.BaseURL,
		APIKey:     config.APIKey,
		From:       config.From,
		FromName:   config.FromName,
		ProfileURL: config.ProfileURL,
	}, logger)
}
