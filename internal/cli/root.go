package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/firstbuy/internal/control"
	"github.com/vietddude/firstbuy/internal/core/config"
)

const shutdownTimeout = 15 * time.Second

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:           "firstbuy",
	Short:         "First-buy block watcher",
	Long:          `firstbuy follows the chain head, detects first key purchases on the tracked contract and posts them to Discord.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFirstbuy,
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("firstbuy failed", "command", rootCmd.CalledAs(), "error", err)
		os.Exit(1)
	}
}

func init() {
	stylelog.InitDefault()
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads .env and the config file, then switches logging to the
// configured level.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	level := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}

func runFirstbuy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	slog.Info("firstbuy started", "config", cfgPath, "backend", cfg.Checkpoint.Backend)

	<-ctx.Done()
	slog.Info("Shutting down", "timeout", shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
