package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seqlab/go-mousepca/pipeline"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var workersFlag int

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Project every discovered session onto the trained basis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("workers") {
				cfg.Workers = workersFlag
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := ctx.logger()

			report, err := pipeline.Apply(runCtx, cfg, log)
			if err != nil {
				return err
			}

			return reportOutcome(report, log)
		},
	}

	cmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent session workers")

	return cmd
}
