package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// Summarizer produces a summary for one description. A returned error is a
// generation failure; the result may still carry the input word count.
type Summarizer interface {
	Summarize(ctx context.Context, description string) (model.SummaryResult, error)
}

// SummarizeReport summarizes one summarization pass.
type SummarizeReport struct {
	Pending   int // records that entered the pass without a summary
	Succeeded int
	Failed    int
	TotalCost float64
}

// SummarizeStage fills in the summary of every record that lacks one.
type SummarizeStage struct {
	summarizer Summarizer
	store      model.RecordStore
	logger     *slog.Logger
}

// NewSummarizeStage creates the stage.
func NewSummarizeStage(summarizer Summarizer, store model.RecordStore, logger *slog.Logger) *SummarizeStage {
	return &SummarizeStage{summarizer: summarizer, store: store, logger: logger}
}

// Run summarizes pending records in store order, persisting after each one.
// Generation failures become failed summaries; only store errors and
// cancellation stop the pass.
func (s *SummarizeStage) Run(ctx context.Context) (SummarizeReport, error) {
	var report SummarizeReport

	records, err := s.store.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("summarize: loading records: %w", err)
	}

	for _, rec := range records {
		if !rec.Summary.IsPending() {
			continue
		}
		report.Pending++
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := s.summarize(ctx, rec)
		if err != nil {
			return report, err
		}
		if err := rec.ApplySummary(res); err != nil {
			return report, fmt.Errorf("summarize: %w", err)
		}
		if err := s.store.Upsert(ctx, rec); err != nil {
			return report, fmt.Errorf("summarize: storing %s: %w", rec.ID, err)
		}

		if res.Summary.IsFailed() {
			report.Failed++
			s.logger.Warn("summary failed", "id", rec.ID, "reason", res.Summary.Text())
		} else {
			report.Succeeded++
			s.logger.Debug("summary stored", "id", rec.ID,
				"input_tokens", res.PromptTokens,
				"output_tokens", res.CompletionTokens,
				"latency_ms", res.Latency.Milliseconds(),
				"cost", res.Cost,
			)
		}
		report.TotalCost += res.Cost
	}
	return report, nil
}

// summarize returns a terminal result for rec. The only error it returns is
// context cancellation, which leaves the record pending for the next run.
func (s *SummarizeStage) summarize(ctx context.Context, rec model.Record) (model.SummaryResult, error) {
	switch rec.Description.State {
	case model.StateFailed:
		return model.SummaryResult{
			Summary: model.Failed("description unavailable: " + rec.Description.Text()),
		}, nil
	case model.StatePending:
		return model.SummaryResult{
			Summary: model.Failed("description unavailable: missing"),
		}, nil
	}

	res, err := s.summarizer.Summarize(ctx, rec.Description.Text())
	if err != nil {
		if ctx.Err() != nil {
			return model.SummaryResult{}, ctx.Err()
		}
		return model.SummaryResult{
			Summary:    model.Failed("Error: " + err.Error()),
			InputWords: res.InputWords,
		}, nil
	}
	return res, nil
}
