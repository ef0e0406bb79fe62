package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"applyd/internal/api"
	"applyd/internal/connectors"
	"applyd/internal/daemon"
	"applyd/internal/engine"
	"applyd/internal/logging"
	"applyd/internal/queue"
	"applyd/internal/submit"
	"applyd/internal/tailor"
	"applyd/internal/worker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the applyd daemon (workers and API server)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := queue.Open(cfg, logger)
			if err != nil {
				return err
			}

			eng := engine.New(store, logger, cfg.Workflow.MaxRetries)
			registry, err := submit.FromConfig(cfg, logger)
			if err != nil {
				store.Close()
				return err
			}
			workers := worker.NewManager(cfg, eng, tailor.New(cfg, logger), registry, logger)
			searcher := connectors.NewSearcher(cfg, logger)
			server := api.New(cfg, eng, store, searcher, logger)

			d, err := daemon.New(cfg, store, workers, server, logger)
			if err != nil {
				store.Close()
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}
}
