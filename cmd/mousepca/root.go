package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seqlab/go-mousepca/pipeline"
)

// errPartial marks a run where some sessions failed but the batch still
// produced output
var errPartial = errors.New("some sessions failed")

// commandContext carries the flags shared by every subcommand
type commandContext struct {
	configFlag  *string
	inputFlag   *string
	outputFlag  *string
	verboseFlag *bool
}

// loadConfig resolves the run configuration from the config file and the
// shared flag overrides
func (ctx *commandContext) loadConfig() (pipeline.Config, error) {

	cfg := pipeline.DefaultConfig()

	if *ctx.configFlag != "" {

		loaded, err := pipeline.LoadConfig(*ctx.configFlag)

		if err != nil {
			return cfg, err
		}

		cfg = loaded
	}

	if *ctx.inputFlag != "" {
		cfg.InputDir = *ctx.inputFlag
	}

	if *ctx.outputFlag != "" {
		cfg.OutputDir = *ctx.outputFlag
	}

	return cfg, cfg.Validate()
}

// logger builds the process logger at the requested verbosity
func (ctx *commandContext) logger() *slog.Logger {

	level := slog.LevelInfo

	if *ctx.verboseFlag {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// reportOutcome maps a batch report onto the process exit contract
func reportOutcome(report *pipeline.Report, log *slog.Logger) error {

	for key, err := range report.Failures() {
		log.Warn("session failed", "session", key, "error", err)
	}

	if report.Partial() {
		return errPartial
	}

	return nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var inputFlag string
	var outputFlag string
	var verboseFlag bool

	ctx := &commandContext{
		configFlag:  &configFlag,
		inputFlag:   &inputFlag,
		outputFlag:  &outputFlag,
		verboseFlag: &verboseFlag,
	}

	rootCmd := &cobra.Command{
		Use:           "mousepca",
		Short:         "Depth video PCA pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&inputFlag, "input-dir", "i", "", "Session input directory")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output-dir", "o", "", "Output directory")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newTrainCommand(ctx))
	rootCmd.AddCommand(newApplyCommand(ctx))
	rootCmd.AddCommand(newChangepointsCommand(ctx))
	rootCmd.AddCommand(newClipScoresCommand(ctx))

	return rootCmd
}
