package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seqlab/go-mousepca/pipeline"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var rankFlag int
	var chunkFlag int
	var workersFlag int
	var flipModelFlag string
	var fftFlag bool
	var minHeightFlag float64
	var maxHeightFlag float64

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the shared basis over every discovered session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("rank") {
				cfg.Rank = rankFlag
			}
			if cmd.Flags().Changed("chunk-size") {
				cfg.ChunkSize = chunkFlag
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workersFlag
			}
			if cmd.Flags().Changed("flip-model") {
				cfg.FlipModelFile = flipModelFlag
			}
			if cmd.Flags().Changed("fft") {
				cfg.UseFFT = fftFlag
			}
			if cmd.Flags().Changed("min-height") {
				cfg.MinHeight = minHeightFlag
			}
			if cmd.Flags().Changed("max-height") {
				cfg.MaxHeight = maxHeightFlag
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := ctx.logger()

			report, err := pipeline.Train(runCtx, cfg, log)
			if err != nil {
				return err
			}

			return reportOutcome(report, log)
		},
	}

	cmd.Flags().IntVar(&rankFlag, "rank", 0, "Number of components to keep")
	cmd.Flags().IntVar(&chunkFlag, "chunk-size", 0, "Frames folded into the accumulator at once")
	cmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent session workers")
	cmd.Flags().StringVar(&flipModelFlag, "flip-model", "", "Flip classifier container")
	cmd.Flags().BoolVar(&fftFlag, "fft", false, "Project spectral magnitudes instead of pixels")
	cmd.Flags().Float64Var(&minHeightFlag, "min-height", 0, "Lowest depth value kept in a frame")
	cmd.Flags().Float64Var(&maxHeightFlag, "max-height", 0, "Highest depth value kept in a frame")

	return cmd
}
