// Package commands wires the pagescribe CLI.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docfold/pagescribe/internal/cancel"
	"github.com/docfold/pagescribe/internal/config"
	"github.com/docfold/pagescribe/internal/llm"
	"github.com/docfold/pagescribe/internal/observability"
	"github.com/docfold/pagescribe/internal/render"
	"github.com/docfold/pagescribe/internal/scribe"
	"github.com/docfold/pagescribe/internal/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "pagescribe",
	Short: "Batch document transcription through a streaming vision model",
	Long: `pagescribe converts the PDF files and image directories under a data
directory into markdown transcripts by rendering each page and sending it to
a streaming chat-completion endpoint. Transcripts double as checkpoints, so
an interrupted run resumes where it left off. Press Escape to stop cleanly.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Observability.LogLevel = "debug"
	}

	ui.Init(noColor)
	log := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
		RunID:  uuid.NewString(),
	})

	ctx, cancelRun := context.WithCancel(cmd.Context())
	defer cancelRun()

	ctrl := cancel.NewController(cfg.LLM.BaseURL, cfg.LLM.APIKey, log)
	ctrl.Start()
	defer ctrl.Close()

	// Ctrl+C behaves like the abort key: stop cooperatively, tear down the
	// in-flight attempt, finish the current unit of work.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		ctrl.RequestStop()
		cancelRun()
	}()

	client := llm.NewClient(cfg.LLM, ctrl, log)
	renderer := render.NewRenderer(cfg.Render)
	loop := scribe.NewLoop(client, ctrl, cfg.Processing.MaxConsecutiveErrors, true, log)
	driver := scribe.NewDriver(cfg.DataDir, renderer, loop, ctrl, true, log)

	ui.Banner()
	stopped, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	if stopped {
		ui.Warning("processing stopped by operator")
	} else {
		ui.Success("processing complete")
	}
	return nil
}
