package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageSummarize Stage = "summarize"
	StagePublish   Stage = "publish"
)

// AllStages lists the stages in execution order.
var AllStages = []Stage{StageIngest, StageSummarize, StagePublish}

// ParseStage validates a stage name.
func ParseStage(name string) (Stage, error) {
	for _, s := range AllStages {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", name)
}

// Locker guards a run against concurrent instances.
type Locker interface {
	Acquire(ctx context.Context) (release func() error, err error)
}

// Report collects the stage reports of one run.
type Report struct {
	RunID     string
	Ingest    IngestReport
	Summarize SummarizeReport
	Publish   PublishReport
}

// Pipeline runs ingest, summarize and publish in order.
type Pipeline struct {
	ingest    *IngestStage
	summarize *SummarizeStage
	publish   *PublishStage
	lock      Locker // optional
	logger    *slog.Logger
}

// New wires the three stages. lock may be nil.
func New(ingest *IngestStage, summarize *SummarizeStage, publish *PublishStage, lock Locker, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		ingest:    ingest,
		summarize: summarize,
		publish:   publish,
		lock:      lock,
		logger:    logger,
	}
}

// Run executes the given stages in pipeline order (all of them when none are
// given) under the run lock. The first stage error stops the run.
func (p *Pipeline) Run(ctx context.Context, stages ...Stage) (report Report, err error) {
	if len(stages) == 0 {
		stages = AllStages
	}
	want := make(map[Stage]bool, len(stages))
	for _, s := range stages {
		want[s] = true
	}

	report.RunID = uuid.NewString()
	logger := p.logger.With("run_id", report.RunID)

	if p.lock != nil {
		release, lerr := p.lock.Acquire(ctx)
		if lerr != nil {
			return report, fmt.Errorf("acquire run lock: %w", lerr)
		}
		defer func() {
			if rerr := release(); rerr != nil {
				logger.Warn("releasing run lock failed", "error", rerr)
				err = errors.Join(err, rerr)
			}
		}()
	}

	logger.Info("run started", "stages", stages)

	if want[StageIngest] {
		report.Ingest, err = p.ingest.Run(ctx)
		logger.Info("stage finished", "stage", StageIngest,
			"fetched", report.Ingest.Fetched,
			"pages", report.Ingest.Pages,
			"skipped", report.Ingest.Skipped,
			"filtered", report.Ingest.Filtered,
			"added", report.Ingest.Added,
			"scrape_failures", report.Ingest.ScrapeFailures,
		)
		if err != nil {
			return report, err
		}
	}

	if want[StageSummarize] {
		report.Summarize, err = p.summarize.Run(ctx)
		logger.Info("stage finished", "stage", StageSummarize,
			"pending", report.Summarize.Pending,
			"succeeded", report.Summarize.Succeeded,
			"failed", report.Summarize.Failed,
			"total_cost", report.Summarize.TotalCost,
		)
		if err != nil {
			return report, err
		}
	}

	if want[StagePublish] {
		report.Publish, err = p.publish.Run(ctx)
		logger.Info("stage finished", "stage", StagePublish,
			"candidates", report.Publish.Candidates,
			"sent", report.Publish.Sent,
			"withheld", report.Publish.Withheld,
			"not_ready", report.Publish.NotReady,
		)
		if err != nil {
			return report, err
		}
	}

	logger.Info("run complete")
	return report, nil
}
