package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"applyd/internal/engine"
	"applyd/internal/logging"
	"applyd/internal/queue"
	"applyd/internal/submit"
	"applyd/internal/tailor"
	"applyd/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a single worker loop against the shared queue",
		Long: "Runs one lockless polling worker against the configured database. " +
			"Multiple worker processes may share a queue; the store's atomic claim " +
			"keeps each task on exactly one of them.",
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
			defer store.Close()

			eng := engine.New(store, logger, cfg.Workflow.MaxRetries)
			registry, err := submit.FromConfig(cfg, logger)
			if err != nil {
				return err
			}
			loop := worker.New(cfg, eng, tailor.New(cfg, logger), registry, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			loop.Run(runCtx)
			return nil
		},
	}
}
