package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	channelapi "channel-insights/agents/channel-api"
	"channel-insights/shared/ai"
	"channel-insights/shared/config"
	"channel-insights/shared/logging"
	"channel-insights/shared/storage"
	"channel-insights/shared/youtube"
)

func main() {
	var configFile string
	var port int

	cmd := &cobra.Command{
		Use:           "channel-api",
		Short:         "Serve YouTube channel, comment and analysis data over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			logging.Setup(cfg.Log)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultPath(), "path to the YAML config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("channel-api failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	client, err := youtube.NewClient(ctx, cfg.YouTube)
	if err != nil {
		return fmt.Errorf("failed to create YouTube client: %w", err)
	}
	aggregator := youtube.NewAggregator(client, cfg.Comments)

	generator, err := ai.NewGeminiGenerator(ctx, cfg.AI)
	if err != nil {
		return err
	}
	prompts, err := ai.LoadPrompts(cfg.AI.PromptsFile)
	if err != nil {
		return err
	}
	summarizer := ai.NewSummarizer(generator, prompts, cfg.AI)

	// Retention belongs to the digest agent; the API only reads.
	reports, err := storage.NewReportStore(cfg.Digest.DataDir, 0)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}

	log.Info().
		Str("model", cfg.AI.Model).
		Bool("oauth", cfg.YouTube.UsesOAuth()).
		Msg("Channel API initialized")

	return channelapi.NewServer(cfg.Server, aggregator, summarizer, reports).Start(ctx)
}
