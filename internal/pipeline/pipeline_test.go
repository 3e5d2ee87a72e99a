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

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type testRig struct {
	source    *fakeSource
	scraper   *fakeScraper
	sum       *fakeSummarizer
	deliverer *recordingDeliverer
	lock      *fakeLock
	store     *store.MemoryStore
	pipeline  *Pipeline
}

func newRig(pages ...[]model.Vacancy) *testRig {
	r := &testRig{
		source:    newFakeSource(pages...),
		scraper:   &fakeScraper{},
		sum:       &fakeSummarizer{cost: 0.1},
		deliverer: &recordingDeliverer{},
		lock:      &fakeLock{},
		store:     store.NewMemoryStore(),
	}
	logger := discardLogger()
	r.pipeline = New(
		NewIngestStage(r.source, r.scraper, nil, r.store, 1, 1, logger),
		NewSummarizeStage(r.sum, r.store, logger),
		NewPublishStage(r.deliverer, r.store, FormatOptions{}, false, logger),
		r.lock,
		logger,
	)
	return r
}

func TestPipeline_RunAllStages(t *testing.T) {
	r := newRig(ids(2, 0), ids(1, 10))

	report, err := r.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, 3, report.Ingest.Added)
	require.Equal(t, 3, report.Summarize.Succeeded)
	require.Equal(t, 3, report.Publish.Sent)
	require.Equal(t, []string{"0", "1", "10"}, r.deliverer.ids())
	require.Equal(t, 1, r.lock.acquired)
	require.Equal(t, 1, r.lock.released)
}

func TestPipeline_RepeatedRunsDoNotResend(t *testing.T) {
	r := newRig(ids(2, 0))

	_, err := r.pipeline.Run(context.Background())
	require.NoError(t, err)

	// The source grows between runs.
	r.source.pages = [][]model.Vacancy{append(ids(1, 9), ids(2, 0)...)}
	report, err := r.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Ingest.Added)
	require.Equal(t, 1, report.Publish.Sent)
	require.Equal(t, []string{"0", "1", "9"}, r.deliverer.ids())
	require.Len(t, r.sum.calls, 3)
}

func TestPipeline_SingleStage(t *testing.T) {
	r := newRig(ids(2, 0))

	report, err := r.pipeline.Run(context.Background(), StageIngest)
	require.NoError(t, err)
	require.Equal(t, 2, report.Ingest.Added)
	require.Empty(t, r.sum.calls)
	require.Empty(t, r.deliverer.sent)
}

func TestPipeline_StageErrorStopsRun(t *testing.T) {
	r := newRig(ids(1, 0))
	r.source.failAt[0] = errors.New("connection refused")

	_, err := r.pipeline.Run(context.Background())
	require.Error(t, err)
	require.Empty(t, r.sum.calls)
	require.Equal(t, 1, r.lock.released, "lock is released on failure")
}

func TestPipeline_LockHeldElsewhere(t *testing.T) {
	r := newRig(ids(1, 0))
	r.lock.err = errors.New("locked by pid 42")

	_, err := r.pipeline.Run(context.Background())
	require.ErrorContains(t, err, "acquire run lock")
	require.Empty(t, r.source.fetched)
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage("summarize")
	require.NoError(t, err)
	require.Equal(t, StageSummarize, s)

	_, err = ParseStage("deploy")
	require.Error(t, err)
}
