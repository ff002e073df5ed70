package main

import (
	"fmt"
	"os"

	"backoffice/internal/app"
	"backoffice/internal/approval"
	"backoffice/internal/config"
	"backoffice/internal/dispatch"
	"backoffice/internal/domain"
	"backoffice/internal/flow"
	"backoffice/internal/handler"
	"backoffice/internal/middleware"
	"backoffice/internal/notify"
	"backoffice/internal/restaurant"
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

	logger.Info("Starting restaurant bot", zap.String("storage", cfg.StorageDriver))

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
	profiles := service.NewProfileService(store, logger)
	settings := service.NewSettingsService(store)
	menu := service.NewMenuService(store, logger)
	if err := menu.Seed(loadMenu(cfg.MenuFile, logger)); err != nil {
		logger.Fatal("Failed to seed menu", zap.Error(err))
	}
	carts := service.NewCartService(store, menu)

	// Initialize Telegram bot
	bot, err := app.NewBot(cfg)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}
	bot.Use(
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.BanGuard(profiles, admins, logger),
	)

	logger.Info("Telegram bot initialized")

	notifier := notify.NewTelegram(bot)
	machine := flow.NewMachine(store, logger, flow.WithTTL(cfg.FlowTTL))
	r := router.New(machine, admins, logger)
	audience := restaurant.Audience{Settings: settings, Admins: admins}
	engine := approval.NewEngine(store, admins, audience, notifier, logger)

	restaurant.New(restaurant.Deps{
		Router:   r,
		Engine:   engine,
		Profiles: profiles,
		Menu:     menu,
		Carts:    carts,
		Settings: settings,
		Admins:   admins,
		Notifier: notifier,
		Forums:   notifier,
		Logger:   logger,
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

// loadMenu reads the seed menu from path, or falls back to the built-in one
func loadMenu(path string, logger *zap.Logger) domain.Menu {
	if path == "" {
		return service.DefaultMenu()
	}
	menu, err := service.LoadMenuFile(path, restaurant.CheckMenuName)
	if err != nil {
		logger.Warn("Failed to load menu file, using default menu",
			zap.String("path", path),
			zap.Error(err),
		)
		return service.DefaultMenu()
	}
	return *menu
}
