package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seqlab/go-mousepca/pipeline"
)

func newChangepointsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "changepoints",
		Short: "Score block structure changepoints over projected scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := ctx.logger()

			report, err := pipeline.Changepoints(runCtx, cfg, log)
			if err != nil {
				return err
			}

			return reportOutcome(report, log)
		},
	}
}
