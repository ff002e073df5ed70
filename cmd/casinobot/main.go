package main

import (
	"fmt"
	"os"

	"backoffice/internal/app"
	"backoffice/internal/approval"
	"backoffice/internal/casino"
	"backoffice/internal/config"
	"backoffice/internal/dispatch"
	"backoffice/internal/flow"
	"backoffice/internal/handler"
	"backoffice/internal/middleware"
	"backoffice/internal/notify"
	"backoffice/internal/router"
	"backoffice/internal/service"
	"backoffice/internal/status"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting casino bot", zap.String("storage", cfg.StorageDriver))

	store, closeStore, err := app.OpenStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeStore()

	// Initialize services
	admins := service.NewAdminService(store, logger)
	if err := admins.Seed(cfg.AdminIDs); err != nil {
		logger.Fatal("Failed to seed admins", zap.Error(err))
	}
	accounts := service.NewAccountService(store, logger)

	// Initialize Telegram bot
	bot, err := app.NewBot(cfg)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}
	bot.Use(middleware.Recover(logger), middleware.Logger(logger))

	logger.Info("Telegram bot initialized")

	notifier := notify.NewTelegram(bot)
	machine := flow.NewMachine(store, logger, flow.WithTTL(cfg.FlowTTL))
	r := router.New(machine, admins, logger)
	engine := approval.NewEngine(store, admins, approval.Admins{Lister: admins}, notifier, logger)

	casino.New(casino.Deps{
		Router:   r,
		Engine:   engine,
		Accounts: accounts,
		Admins:   admins,
		Notifier: notifier,
		Logger:   logger,
		Links: casino.Links{
			Channel: cfg.ChannelURL,
			Site:    cfg.SiteURL,
			Support: cfg.SupportContact,
		},
	})

	queue := dispatch.NewQueue(0, logger)
	h := handler.NewHandler(bot, r, queue, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	cleanup := service.NewCleanupService(store, engine.Tables(), cfg.RetentionDays, logger)
	scheduler, err := app.ScheduleCleanup(cfg.CleanupSchedule, cleanup, queue, logger)
	if err != nil {
		logger.Fatal("Failed to schedule cleanup", zap.Error(err))
	}

	rt := &app.Runtime{
		Bot:        bot,
		Queue:      queue,
		Cron:       scheduler,
		Status:     status.NewServer(engine, queue, logger),
		StatusAddr: cfg.StatusAddr,
		Logger:     logger,
	}
	rt.Run()
}
