package main

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/config"
	"github.com/gosuda/agileboard/internal/notify"
	"github.com/gosuda/agileboard/internal/server"
	"github.com/gosuda/agileboard/internal/store/memory"
	"github.com/gosuda/agileboard/internal/store/postgres"
	redisstore "github.com/gosuda/agileboard/internal/store/redis"
	"github.com/gosuda/agileboard/web"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	level, parseErr := zerolog.ParseLevel(os.Getenv("AGILEBOARD_LOG_LEVEL"))
	if parseErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("AGILEBOARD_LOG_FORMAT") == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	deps := server.Deps{Checks: make(map[string]server.Pinger)}

	switch cfg.Store.Driver {
	case config.StoreMemory:
		log.Warn().Msg("using the in-memory store; data is lost on restart")
		store := memory.New()
		pubsub := memory.NewPubSub()
		deps.Store = store
		deps.Broker = pubsub

	default:
		if cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}

		// Connect to PostgreSQL.
		store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}

		// Connect to Redis.
		pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()

		deps.Store = store
		deps.Broker = pubsub
		deps.Checks["postgres"] = store
		deps.Checks["redis"] = pubsub
	}

	deps.Auth = auth.NewService(deps.Store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Notifications fan out to the log and, when configured, Slack. The
	// dispatcher keeps delivery off the request path.
	registry := notify.NewRegistry()
	registry.Register("log", notify.LogNotifier{})
	if cfg.Slack.BotToken != "" && cfg.Slack.Channel != "" {
		registry.Register("slack", notify.NewSlackNotifier(slacklib.New(cfg.Slack.BotToken), cfg.Slack.Channel))
		log.Info().Str("channel", cfg.Slack.Channel).Msg("slack notifications enabled")
	}
	dispatcher := notify.NewDispatcher(registry, cfg.Notify.QueueSize, cfg.Notify.Workers)
	deps.Notifier = dispatcher

	// Prepare embedded web assets (strip "build/" prefix from fs paths).
	webAssets, err := fs.Sub(web.Assets, "build")
	if err != nil {
		return fmt.Errorf("web assets: %w", err)
	}
	deps.WebAssets = webAssets

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, deps)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Store.Driver).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}
	if closeErr := dispatcher.Close(shutdownCtx); closeErr != nil {
		log.Warn().Err(closeErr).Msg("notifications not fully delivered")
	}

	log.Info().Msg("stopped")
	return nil
}
