package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/suno-sync-go/internal/app"
	"github.com/yourusername/suno-sync-go/internal/domain"
	"github.com/yourusername/suno-sync-go/pkg/logger"
)

// Exit codes surfaced to scripts and cron wrappers.
const (
	exitOK             = 0
	exitAuthFailure    = 1
	exitPartialFetch   = 2
	exitDownloadErrors = 3
)

var (
	configPath string
	flagOutDir string
	flagToken  string
	rootCmd    = &cobra.Command{
		Use:   "suno-sync",
		Short: "Suno-Sync - Resumable mirror of a Suno media feed",
		Long: `Keeps a local directory in sync with a remote Suno media feed.
Fetches the paginated feed into a resumable page cache, computes which
tracks are missing locally, and downloads them with atomic publishes.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&flagOutDir, "out-dir", "o", "", "Output directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Bearer token (overrides env and token file)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig loads the effective configuration, applying flag overrides.
func loadConfig() (*domain.Config, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if flagOutDir != "" {
		config.Fetch.OutDir = flagOutDir
	}
	return config, nil
}

// resolveToken finds the bearer token: flag, then SUNOSYNC_TOKEN (a local
// .env file is honored), then the configured token file.
func resolveToken(config *domain.Config) (string, error) {
	if flagToken != "" {
		return strings.TrimSpace(flagToken), nil
	}

	// Best effort: a missing .env file is fine.
	_ = godotenv.Load()

	if tok := strings.TrimSpace(os.Getenv("SUNOSYNC_TOKEN")); tok != "" {
		return tok, nil
	}
	if tok := strings.TrimSpace(config.Feed.Token); tok != "" {
		return tok, nil
	}

	if config.Feed.TokenFile != "" {
		data, err := os.ReadFile(config.Feed.TokenFile)
		if err == nil {
			if tok := strings.TrimSpace(string(data)); tok != "" {
				return tok, nil
			}
		}
	}

	return "", fmt.Errorf("no bearer token: use --token, SUNOSYNC_TOKEN, or a token file")
}

func newLogger(config *domain.Config) *zap.Logger {
	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return logger.NewDefault()
	}
	return log
}

// newCategoryLogger returns a logger for long-running fetch/sync sessions.
// With logs_dir configured, output goes to per-category daily files so
// concurrent fetch and sync processes do not interleave.
func newCategoryLogger(config *domain.Config, category logger.LogCategory) *zap.Logger {
	if config.Logging.LogsDir != "" {
		ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err == nil {
			return ml.GetLogger(category)
		}
		fmt.Fprintf(os.Stderr, "Warning: falling back to console logging: %v\n", err)
	}
	return newLogger(config)
}

func newRunID() string {
	return uuid.New().String()[:8]
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
