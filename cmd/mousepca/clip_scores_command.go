package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seqlab/go-mousepca/output"
)

func newClipScoresCommand(ctx *commandContext) *cobra.Command {
	var framesFlag int
	var fromEndFlag bool

	cmd := &cobra.Command{
		Use:   "clip-scores [container]",
		Short: "Trim frames from every session in a scores container",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if framesFlag < 1 {
				return fmt.Errorf("frames must be positive, got %d", framesFlag)
			}

			path := ""

			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := ctx.loadConfig()
				if err != nil {
					return err
				}
				path = cfg.ScoresPath()
			}

			log := ctx.logger()

			if err := output.ClipScores(path, framesFlag, fromEndFlag); err != nil {
				return err
			}

			log.Info("scores clipped", "path", path, "frames", framesFlag,
				"from_end", fromEndFlag)

			return nil
		},
	}

	cmd.Flags().IntVar(&framesFlag, "frames", 0, "Number of frames to drop")
	cmd.Flags().BoolVar(&fromEndFlag, "from-end", false, "Drop from the end instead of the start")

	return cmd
}
