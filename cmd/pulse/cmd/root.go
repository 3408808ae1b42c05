package cmd

import (
	"log/slog"
	"os"

	pulse "github.com/pulsehq/pulse-go"
	"github.com/spf13/cobra"
)

var (
	configFile    string
	stateStoreURL string
	logLevel      string
	logFormat     string
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse usage-telemetry agent",
	Long:  `Pulse detects behavioral signals on hosted pages and delivers batched usage events to a collection endpoint.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&stateStoreURL, "state-store-url", "", "state store URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the agent config honoring the --config flag.
func loadConfig() (*pulse.Config, error) {
	return pulse.LoadConfig(configFile)
}

// newLogger builds the slog logger from the persistent logging flags.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
