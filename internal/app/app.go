// Package app holds the startup and shutdown plumbing shared by the bot
// binaries.
package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"backoffice/internal/config"
	"backoffice/internal/dispatch"
	"backoffice/internal/service"
	"backoffice/internal/status"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	tele "gopkg.in/telebot.v3"
)

// NewLogger builds a production logger at level ("debug", "info", ...)
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// NewBot creates the telebot bot with a long poller
func NewBot(cfg *config.Config) (*tele.Bot, error) {
	return tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	})
}

// ScheduleCleanup runs cleanup on the queue at every tick of schedule,
// plus once right away
func ScheduleCleanup(schedule string, cleanup *service.CleanupService, queue *dispatch.Queue, logger *zap.Logger) (*cron.Cron, error) {
	run := func() {
		err := queue.Do("cleanup", func() error {
			_, err := cleanup.CleanupOldData()
			return err
		})
		if err != nil {
			logger.Error("Failed to run scheduled cleanup", zap.Error(err))
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, run); err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_SCHEDULE %q: %w", schedule, err)
	}
	go run()
	c.Start()
	return c, nil
}

// Runtime is everything a bot binary starts and must stop
type Runtime struct {
	Bot        *tele.Bot
	Queue      *dispatch.Queue
	Cron       *cron.Cron
	Status     *status.Server
	StatusAddr string
	Logger     *zap.Logger
}

// Run starts polling and blocks until SIGINT or SIGTERM, then shuts
// everything down in order
func (r *Runtime) Run() {
	if r.Status != nil && r.StatusAddr != "" {
		go func() {
			if err := r.Status.Listen(r.StatusAddr); err != nil {
				r.Logger.Error("Status server stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		r.Logger.Info("Bot started successfully", zap.String("username", r.Bot.Me.Username))
		r.Bot.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	r.Logger.Info("Shutdown signal received, stopping bot...")

	r.Bot.Stop()
	if r.Cron != nil {
		<-r.Cron.Stop().Done()
	}
	if r.Status != nil && r.StatusAddr != "" {
		if err := r.Status.Shutdown(); err != nil {
			r.Logger.Warn("Failed to stop status server", zap.Error(err))
		}
	}
	r.Queue.Close()

	r.Logger.Info("Bot stopped gracefully")
}
