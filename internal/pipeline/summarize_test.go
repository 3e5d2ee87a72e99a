package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amishk599/vacancyfeed/internal/model"
	"github.com/amishk599/vacancyfeed/internal/store"
)

func seededStore(t *testing.T, records ...model.Record) *store.MemoryStore {
	t.Helper()
	st, err := store.NewMemoryStoreFrom(records)
	require.NoError(t, err)
	return st
}

func pendingRecord(id string, description model.Outcome) model.Record {
	return model.NewRecord(vacancy(id), description, time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC))
}

func TestSummarize_OnlyPendingRecords(t *testing.T) {
	done := pendingRecord("1", model.Succeeded("old"))
	require.NoError(t, done.ApplySummary(model.SummaryResult{Summary: model.Succeeded("kept")}))
	st := seededStore(t, done, pendingRecord("2", model.Succeeded("text two")))
	sum := &fakeSummarizer{cost: 0.242}

	report, err := NewSummarizeStage(sum, st, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, SummarizeReport{Pending: 1, Succeeded: 1, TotalCost: 0.242}, report)
	require.Equal(t, []string{"text two"}, sum.calls)

	recs, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "kept", recs[0].Summary.Text())

	got := recs[1]
	require.Equal(t, "summary: text two", got.Summary.Text())
	require.Equal(t, 7, *got.InputWordCount)
	require.Equal(t, 1000, *got.InputTokenCount)
	require.Equal(t, 100, *got.OutputTokenCount)
	require.Equal(t, int64(1200), *got.GenerationLatencyMS)
	require.InDelta(t, 0.242, *got.CostEstimate, 1e-9)
}

func TestSummarize_Monotonic(t *testing.T) {
	st := seededStore(t, pendingRecord("1", model.Succeeded("text")))
	sum := &fakeSummarizer{}
	stage := NewSummarizeStage(sum, st, discardLogger())

	_, err := stage.Run(context.Background())
	require.NoError(t, err)

	report, err := stage.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Pending)
	require.Len(t, sum.calls, 1, "a terminal summary is never regenerated")
}

func TestSummarize_GenerationFailureIsTerminal(t *testing.T) {
	st := seededStore(t, pendingRecord("1", model.Succeeded("text")), pendingRecord("2", model.Succeeded("more")))
	sum := &fakeSummarizer{err: errors.New("HTTP 500: upstream")}

	report, err := NewSummarizeStage(sum, st, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Failed)

	recs, err := st.Load(context.Background())
	require.NoError(t, err)
	for _, rec := range recs {
		require.True(t, rec.Summary.IsFailed())
		require.Contains(t, rec.Summary.Text(), "Error: ")
		require.Equal(t, 0, *rec.InputTokenCount)
		require.Equal(t, 0, *rec.OutputTokenCount)
		require.Equal(t, int64(0), *rec.GenerationLatencyMS)
		require.Equal(t, 0.0, *rec.CostEstimate)
	}
}

func TestSummarize_FailedDescriptionSkipsGenerator(t *testing.T) {
	st := seededStore(t, pendingRecord("1", model.Failed("Error: timeout")))
	sum := &fakeSummarizer{}

	report, err := NewSummarizeStage(sum, st, discardLogger()).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Empty(t, sum.calls)

	recs, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "description unavailable: Error: timeout", recs[0].Summary.Text())
}

func TestSummarize_CancelledLeavesPending(t *testing.T) {
	st := seededStore(t, pendingRecord("1", model.Succeeded("text")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSummarizeStage(&fakeSummarizer{}, st, discardLogger()).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	recs, err := st.Load(context.Background())
	require.NoError(t, err)
	require.True(t, recs[0].Summary.IsPending())
}
