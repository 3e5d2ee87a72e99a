package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/amishk599/vacancyfeed/internal/lock"
	"github.com/amishk599/vacancyfeed/internal/pipeline"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ingest, summarize and publish once",
	Long:  "One full pipeline pass under the run lock, then exit.",
	RunE:  runAll,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch new vacancies into the store",
	RunE:  stageRunner(pipeline.StageIngest),
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize every record still awaiting a summary",
	RunE:  stageRunner(pipeline.StageSummarize),
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Deliver every ready, unsent record",
	RunE:  stageRunner(pipeline.StagePublish),
}

func init() {
	rootCmd.AddCommand(runCmd, ingestCmd, summarizeCmd, publishCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
	return runStages(pipeline.AllStages...)
}

func stageRunner(stage pipeline.Stage) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return runStages(stage)
	}
}

func runStages(stages ...pipeline.Stage) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up pipeline", "error", err)
		return err
	}
	defer cleanup()

	report, err := p.Run(ctx, stages...)
	switch {
	case errors.Is(err, lock.ErrLocked):
		logger.Warn("another run is in progress, skipping", "error", err)
		return err
	case errors.Is(err, context.Canceled):
		logger.Info("run interrupted, progress so far is saved", "run_id", report.RunID)
		return nil
	case err != nil:
		logger.Error("run failed", "run_id", report.RunID, "error", err)
		return err
	}
	return nil
}
