package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/amishk599/vacancyfeed/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func vacancy(id string) model.Vacancy {
	return model.Vacancy{
		ID:          id,
		Name:        "Prompt Engineer " + id,
		URL:         "https://hh.ru/vacancy/" + id,
		PublishedAt: "2025-03-14T09:30:00+0300",
		Employer:    model.Employer{Name: strPtr("Acme")},
	}
}

// fakeSource serves fixed pages and records which pages were requested.
type fakeSource struct {
	mu      sync.Mutex
	pages   [][]model.Vacancy
	failAt  map[int]error
	fetched []int
}

func newFakeSource(pages ...[]model.Vacancy) *fakeSource {
	return &fakeSource{pages: pages, failAt: map[int]error{}}
}

func (f *fakeSource) FetchPage(_ context.Context, page int) (model.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, page)
	if err := f.failAt[page]; err != nil {
		return model.SearchPage{}, err
	}
	if page >= len(f.pages) {
		return model.SearchPage{Page: page, Pages: len(f.pages)}, nil
	}
	return model.SearchPage{Page: page, Pages: len(f.pages), Items: f.pages[page]}, nil
}

// fakeScraper returns "description of <url>" unless the url is marked failing.
type fakeScraper struct {
	mu    sync.Mutex
	fail  map[string]bool
	delay func(url string) time.Duration
	calls int
}

func (f *fakeScraper) Scrape(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls++
	failing := f.fail[url]
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(url)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if failing {
		return "", errors.New("timeout")
	}
	return "description of " + url, nil
}

// fakeSummarizer returns a summary derived from the description.
type fakeSummarizer struct {
	calls []string
	err   error
	cost  float64
}

func (f *fakeSummarizer) Summarize(_ context.Context, description string) (model.SummaryResult, error) {
	f.calls = append(f.calls, description)
	if f.err != nil {
		return model.SummaryResult{InputWords: 7}, f.err
	}
	return model.SummaryResult{
		Summary:          model.Succeeded("summary: " + description),
		InputWords:       7,
		PromptTokens:     1000,
		CompletionTokens: 100,
		Latency:          1200 * time.Millisecond,
		Cost:             f.cost,
	}, nil
}

// recordingDeliverer records messages and can fail on the n-th delivery (1-based).
type recordingDeliverer struct {
	sent   []model.Message
	failOn int
	calls  int
}

func (d *recordingDeliverer) Deliver(_ context.Context, msg model.Message) error {
	d.calls++
	if d.failOn > 0 && d.calls == d.failOn {
		return &model.HTTPError{StatusCode: 502, Err: errors.New("bad gateway")}
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *recordingDeliverer) ids() []string {
	out := make([]string, len(d.sent))
	for i, m := range d.sent {
		out[i] = m.RecordID
	}
	return out
}

// fakeLock counts acquisitions and releases.
type fakeLock struct {
	err      error
	acquired int
	released int
}

func (l *fakeLock) Acquire(_ context.Context) (func() error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() error { l.released++; return nil }, nil
}

func ids(n int, offset int) []model.Vacancy {
	out := make([]model.Vacancy, n)
	for i := range out {
		out[i] = vacancy(strconv.Itoa(offset + i))
	}
	return out
}
