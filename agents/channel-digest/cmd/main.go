package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	channeldigest "channel-insights/agents/channel-digest"
	"channel-insights/shared/config"
	"channel-insights/shared/logging"
	"channel-insights/shared/scheduler"
)

func main() {
	var configFile string
	var once bool

	cmd := &cobra.Command{
		Use:           "channel-digest",
		Short:         "Build scheduled comment and insight digests for YouTube channels",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configFile)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			agent := channeldigest.NewDigestAgent(cfg)
			s := scheduler.New(cfg, agent)

			if once {
				log.Info().Msg("Running once")
				if err := agent.Initialize(); err != nil {
					return err
				}
				return s.RunOnce(ctx)
			}

			log.Info().Msg("Starting scheduler")
			if err := s.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultPath(), "path to the YAML config file")
	cmd.Flags().BoolVar(&once, "once", false, "run a single digest pass and exit")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("channel-digest failed")
	}
}
