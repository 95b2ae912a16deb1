package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"strava_sync/internal/config"
	"strava_sync/internal/logging"
)

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stravasync",
	Short: "Synchronize activities between local files and Strava",
	Long: `stravasync exports Strava activities to a local record store and uploads
local activity files to Strava.

The export resumes from the oldest activity already in the store, so it can be
run again after an interruption without duplicating rows. Uploads wait out the
Strava rate limit instead of failing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded

		logger = logging.New(logging.Params{
			Level:       cfg.LogLevel,
			FileName:    cfg.LogFile,
			LogToStdout: cfg.LogToStdout,
		})
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	if logger != nil {
		logger.Error("command failed", "error", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	cancel()
	os.Exit(1)
}
