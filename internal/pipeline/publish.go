package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// PublishReport summarizes one publication pass.
type PublishReport struct {
	Candidates int // unsent records seen
	Sent       int
	Withheld   int // failed description or summary, publishing failures disabled
	NotReady   int // summary still pending
}

// PublishStage delivers every unsent, ready record and marks it sent.
type PublishStage struct {
	deliverer     model.Deliverer
	store         model.RecordStore
	format        FormatOptions
	includeFailed bool
	logger        *slog.Logger
	now           func() time.Time
}

// NewPublishStage creates the stage. Spacing between deliveries is the
// deliverer's concern.
func NewPublishStage(
	deliverer model.Deliverer,
	store model.RecordStore,
	format FormatOptions,
	includeFailed bool,
	logger *slog.Logger,
) *PublishStage {
	return &PublishStage{
		deliverer:     deliverer,
		store:         store,
		format:        format,
		includeFailed: includeFailed,
		logger:        logger,
		now:           time.Now,
	}
}

// Run publishes in store order. A delivery failure stops the pass; records
// sent before it stay sent.
func (s *PublishStage) Run(ctx context.Context) (PublishReport, error) {
	var report PublishReport

	records, err := s.store.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("publish: loading records: %w", err)
	}

	for _, rec := range records {
		if rec.Sent {
			continue
		}
		report.Candidates++

		if rec.Summary.IsPending() {
			report.NotReady++
			continue
		}
		if rec.HasFailure() && !s.includeFailed {
			report.Withheld++
			s.logger.Debug("record withheld", "id", rec.ID,
				"description", rec.Description.State, "summary", rec.Summary.State)
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		msg := model.Message{RecordID: rec.ID, Text: FormatMessage(rec, s.format)}
		if err := s.deliverer.Deliver(ctx, msg); err != nil {
			return report, fmt.Errorf("publish: delivering %s: %w", rec.ID, err)
		}

		if err := rec.MarkSent(s.now()); err != nil {
			return report, fmt.Errorf("publish: %w", err)
		}
		if err := s.store.Upsert(ctx, rec); err != nil {
			return report, fmt.Errorf("publish: storing %s: %w", rec.ID, err)
		}
		report.Sent++
	}
	return report, nil
}
