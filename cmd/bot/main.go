// Package main contains the entrypoint for the ClaraBot WhatsApp assistant.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clarahexa/clarabot/internal/bot"
	"github.com/clarahexa/clarabot/internal/bot/tasks"
	"github.com/clarahexa/clarabot/internal/config"
	"github.com/clarahexa/clarabot/internal/database"
	"github.com/clarahexa/clarabot/internal/forms"
	"github.com/clarahexa/clarabot/internal/gemini"
	"github.com/clarahexa/clarabot/internal/intent"
	"github.com/clarahexa/clarabot/internal/logger"
	"github.com/clarahexa/clarabot/internal/media"
	"github.com/clarahexa/clarabot/internal/session"
	"github.com/clarahexa/clarabot/internal/shortener"
	"github.com/clarahexa/clarabot/internal/tools"
	"github.com/clarahexa/clarabot/internal/waha"
	"github.com/clarahexa/clarabot/internal/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// cache, collaborator clients, pipeline, scheduler), handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)

	if err := database.ApplyMigrations(db.DB, cfg.Database.Path); err != nil {
		log.Error("Failed to apply database migrations", "error", err)
		return 1
	}
	store := database.NewStore(db, log)

	cache, err := session.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		log.Error("Failed to connect to session cache", "url", cfg.Redis.URL, "error", err)
		return 1
	}
	sessions := session.NewStore(store, cache, session.Options{
		CacheTTL:         cfg.Session.CacheTTL,
		StateSizeCap:     cfg.Session.StateSizeCap,
		MaxContentLength: cfg.Session.MaxContentLength,
	}, log)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	wahaClient := waha.NewClient(cfg.WAHA, log)
	formsClient := forms.NewClient(cfg.Forms, log)
	short := shortener.NewTinyURL(cfg.Shortener.APIToken, log)
	parser := media.NewParser(cfg.Media, log)

	registry := tools.NewRegistry(
		tools.NewFormCreator(gemClient, formsClient, short, log),
		tools.NewFormUpdater(gemClient, formsClient, log),
		tools.NewContributor(gemClient, formsClient, log),
		tools.NewAnalytics(gemClient, formsClient, log),
		tools.NewScheduleChecker(gemClient, log),
		tools.NewGeneralQA(gemClient, log),
	)
	dispatcher := tools.NewDispatcher(registry, gemClient, wahaClient, cfg.Bot.Messages, log)
	classifier := intent.NewClassifier(gemClient, log)
	normalizer := webhook.NewNormalizer(cfg.Bot, sessions, wahaClient, parser, log)

	pipeline := bot.NewPipeline(normalizer, sessions, classifier, dispatcher, wahaClient, log)
	server := webhook.NewServer(cfg.Server, pipeline, store, log)

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Session: cfg.Session,
	})
	sched, err := bot.NewScheduler(log, cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, server, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
