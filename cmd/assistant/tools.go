package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KakuleMalambo/voice-assistant/internal/config"
	"github.com/KakuleMalambo/voice-assistant/internal/httpc"
	"github.com/KakuleMalambo/voice-assistant/internal/log"
	"github.com/KakuleMalambo/voice-assistant/pkg/house"
	"github.com/KakuleMalambo/voice-assistant/pkg/lookup"
	"github.com/KakuleMalambo/voice-assistant/pkg/tools"
)

// errToolFailed reports a tool that ran but returned a failure result. The
// result text has already been printed.
var errToolFailed = errors.New("tool reported a failure")

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List or invoke the assistant's tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg, log.Component("house"))
		if err != nil {
			return err
		}
		registry, err := buildRegistry(cfg, store, log.L())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, name := range registry.Names() {
			t, _ := registry.Get(name)
			fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
		}
		return w.Flush()
	},
}

var toolsInvokeCmd = &cobra.Command{
	Use:   "invoke <name> [json-args]",
	Short: "Invoke a tool once and print its result",
	Example: `  assistant tools invoke getRoomTemperatures
  assistant tools invoke setRoomTemperature '{"roomName":"Kitchen","temperature":22}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		raw := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &raw); err != nil {
				return fmt.Errorf("parse arguments: %w", err)
			}
		}

		store, err := openStore(cfg, log.Component("house"))
		if err != nil {
			return err
		}
		registry, err := buildRegistry(cfg, store, log.L())
		if err != nil {
			return err
		}
		disp := tools.NewDispatcher(registry, tools.WithLogger(log.L()))

		res, err := disp.Invoke(cmd.Context(), args[0], raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		if res.Failed {
			return errToolFailed
		}
		return nil
	},
}

func init() {
	toolsCmd.AddCommand(toolsListCmd, toolsInvokeCmd)
	rootCmd.AddCommand(toolsCmd)
}

// buildRegistry wires the built-in tools to the configured store and
// lookup clients.
func buildRegistry(cfg config.Config, store house.Store, logger *slog.Logger) (*tools.Registry, error) {
	weather := lookup.NewWeatherClient(cfg.Weather.BaseURL, httpc.NewClient(cfg.Weather.Timeout), logger)
	search := lookup.NewSearchClient(lookup.SearchConfig{
		BaseURL:  cfg.Search.BaseURL,
		APIKey:   cfg.Search.APIKey,
		Count:    cfg.Search.Count,
		Language: cfg.Search.Language,
		Client:   httpc.NewClient(cfg.Search.Timeout),
		Logger:   logger,
	})
	if !search.Configured() {
		logger.Warn("search API key is not set; searchWeb will report an error")
	}

	return tools.NewRegistry(tools.Builtin(tools.BuiltinConfig{
		Store:   store,
		Weather: weather,
		Search:  search,
	})...)
}
