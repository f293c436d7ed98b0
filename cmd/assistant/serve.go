package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KakuleMalambo/voice-assistant/internal/log"
	"github.com/KakuleMalambo/voice-assistant/internal/metrics"
	"github.com/KakuleMalambo/voice-assistant/pkg/conversation"
	"github.com/KakuleMalambo/voice-assistant/pkg/hub"
	"github.com/KakuleMalambo/voice-assistant/pkg/tools"
	"github.com/KakuleMalambo/voice-assistant/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant server",
	Long: `Starts the HTTP server. Participants connect on /ws/session, one
session per socket; dashboards follow tool calls on /ws/events.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}
	logger := log.L()

	if cfg.Realtime.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; sessions will fail to start")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openStore(cfg, log.Component("house"))
	if err != nil {
		return err
	}
	if _, err := store.ReadAll(cmd.Context()); err != nil {
		logger.Warn("room store is not readable yet", "path", store.Path(), "error", err)
	}

	registry, err := buildRegistry(cfg, store, logger)
	if err != nil {
		return err
	}

	h := hub.New(logger)
	disp := tools.NewDispatcher(registry,
		tools.WithLogger(logger),
		tools.WithMetrics(m),
		tools.WithObserver(web.ToolObserver(h, store, logger)))

	rt := cfg.Realtime
	server := web.NewServer(web.Config{
		Port:       cfg.Server.Port,
		Store:      store,
		Dispatcher: disp,
		Hub:        h,
		NewProvider: func() (conversation.Provider, error) {
			return conversation.NewOpenAI(
				conversation.WithAPIKey(rt.APIKey),
				conversation.WithModel(rt.Model),
				conversation.WithVoice(rt.Voice),
				conversation.WithLogger(logger),
			)
		},
		Instructions: rt.Instructions,
		Greeting:     rt.Greeting,
		Voice:        rt.Voice,
		Metrics:      m,
		Gatherer:     reg,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })

	logger.Info("assistant started", "port", cfg.Server.Port, "rooms", store.Path(), "tools", registry.Names())
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("assistant stopped")
	return nil
}
