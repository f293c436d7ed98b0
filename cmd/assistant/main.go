// Command assistant runs the voice assistant tool gateway and offers a few
// maintenance commands over its rooms and tools.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/KakuleMalambo/voice-assistant/internal/config"
	"github.com/KakuleMalambo/voice-assistant/internal/log"
	"github.com/KakuleMalambo/voice-assistant/pkg/house"
)

var (
	configPath string
	logLevel   string
	roomsPath  string
)

var rootCmd = &cobra.Command{
	Use:           "assistant",
	Short:         "Voice assistant tool gateway",
	Long:          `Runs realtime voice sessions that can check the weather, search the web, and read or set room temperatures.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&roomsPath, "rooms", "", "path to the rooms JSON document")
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errToolFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode is 2 for a failed tool result and 1 for any other error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errToolFailed):
		return 2
	default:
		return 1
	}
}

// loadConfig resolves file, environment and flags, in that order, and sets
// up the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if roomsPath != "" {
		cfg.Store.Path = roomsPath
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	log.Init(cfg.LogLevel)
	return cfg, nil
}

func openStore(cfg config.Config, logger *slog.Logger) (*house.JSONStore, error) {
	return house.NewJSONStore(cfg.Store.Path, house.WithLogger(logger))
}
