package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cfduel/lockoutbot/internal/config"
	"github.com/cfduel/lockoutbot/internal/discord"
	"github.com/cfduel/lockoutbot/internal/duel"
	"github.com/cfduel/lockoutbot/internal/judge"
	"github.com/cfduel/lockoutbot/internal/logger"
	"github.com/cfduel/lockoutbot/internal/server"
	"github.com/cfduel/lockoutbot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration failed", "error", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "lockout-bot",
		Version:     version(),
	})

	st, pinger, cleanup, err := buildStore(cfg)
	if err != nil {
		slog.Error("Store initialization failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	judgeClient := judge.NewClient(cfg.JudgeBaseURL)

	bot, err := discord.New(cfg.DiscordToken)
	if err != nil {
		slog.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}

	notifier := discord.NewChannelNotifier(bot.Session, cfg.DuelChannelID)
	registry := duel.NewRegistry(st)
	manager := duel.NewManager(judgeClient, st, registry)

	srv := server.NewServer(cfg.Port, cfg.APIKey, manager, notifier, pinger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Blocks until SIGINT/SIGTERM
	if err := bot.Run(); err != nil {
		slog.Error("Bot failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("Admin server shutdown failed", "error", err)
	}
}

// buildStore selects the configured store driver. The cleanup func closes
// whatever the driver opened.
func buildStore(cfg *config.Config) (store.Store, server.Pinger, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		m := store.NewMemory()
		return m, m, func() {}, nil
	default:
		connString := cfg.GetDBConnString()
		if err := store.Migrate(connString); err != nil {
			return nil, nil, nil, err
		}
		pg, err := store.NewPostgres(context.Background(), connString)
		if err != nil {
			return nil, nil, nil, err
		}
		return pg, pg, pg.Close, nil
	}
}

func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}
