// ABOUTME: Entry point for setlist-bot
// ABOUTME: Loads config, opens the catalog store and runs the Matrix bot

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/setlist-bot/internal/bot"
	"github.com/2389/setlist-bot/internal/config"
	"github.com/2389/setlist-bot/internal/store"
)

const banner = `
    ╭──────────────────────────────────╮
    │                                  │
    │   ┏━┓┏━╸╺┳╸╻  ╻┏━┓╺┳╸           │
    │   ┗━┓┣╸  ┃ ┃  ┃┗━┓ ┃            │
    │   ┗━┛┗━╸ ╹ ┗━╸╹┗━┛ ╹            │
    │                                  │
    │          setlist bot             │
    │                                  │
    ╰──────────────────────────────────╯
`

// getConfigPath returns the path to the bot config file.
// Priority: SETLIST_CONFIG env var > XDG_CONFIG_HOME/setlist/config.toml > ~/.config/setlist/config.toml
func getConfigPath() string {
	if envPath := os.Getenv("SETLIST_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "setlist", "config.toml")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging.Level)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("User:       %s\n", cfg.Matrix.UserID)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Path)
	fmt.Println()

	catalog, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening catalog store: %w", err)
	}

	b, err := bot.New(cfg, catalog, logger)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting bot")
	return b.Run(ctx)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(logger)
	return logger
}
