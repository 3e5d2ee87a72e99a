package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// IngestReport summarizes one ingestion pass.
type IngestReport struct {
	Fetched        int // items returned by the source across all pages
	Pages          int // pages fetched
	Skipped        int // already stored, or repeated within the batch
	Filtered       int // rejected by the local filter
	Added          int // new records persisted
	ScrapeFailures int // added records whose description is a failure
}

// IngestStage pulls the paginated search results, drops known ids and appends
// one enriched record per new vacancy.
type IngestStage struct {
	source            model.JobSource
	scraper           model.DescriptionScraper
	filter            model.VacancyFilter // optional
	store             model.RecordStore
	pageConcurrency   int
	scrapeConcurrency int
	logger            *slog.Logger
	now               func() time.Time
}

// NewIngestStage creates the stage. filter may be nil. Concurrency values
// below 1 mean sequential.
func NewIngestStage(
	source model.JobSource,
	scraper model.DescriptionScraper,
	filter model.VacancyFilter,
	store model.RecordStore,
	pageConcurrency int,
	scrapeConcurrency int,
	logger *slog.Logger,
) *IngestStage {
	return &IngestStage{
		source:            source,
		scraper:           scraper,
		filter:            filter,
		store:             store,
		pageConcurrency:   max(pageConcurrency, 1),
		scrapeConcurrency: max(scrapeConcurrency, 1),
		logger:            logger,
		now:               time.Now,
	}
}

// Run executes one ingestion pass. Every page is fetched before anything is
// stored, so a source failure aborts the pass with the store untouched.
// Records stored before a later store error or cancellation stay stored.
// Scrape failures are recorded in the description and never abort.
func (s *IngestStage) Run(ctx context.Context) (IngestReport, error) {
	var report IngestReport

	items, pages, err := s.fetchAll(ctx)
	if err != nil {
		return report, err
	}
	report.Fetched = len(items)
	report.Pages = pages

	known, err := s.store.ExistingKeys(ctx)
	if err != nil {
		return report, fmt.Errorf("ingest: loading existing ids: %w", err)
	}

	var fresh []model.Vacancy
	for _, v := range items {
		if _, ok := known[v.ID]; ok {
			report.Skipped++
			continue
		}
		known[v.ID] = struct{}{}

		if s.filter != nil && !s.filter.Match(v) {
			report.Filtered++
			s.logger.Debug("vacancy filtered out", "id", v.ID, "title", v.Name)
			continue
		}
		fresh = append(fresh, v)
	}

	err = s.enrich(ctx, fresh, func(v model.Vacancy, description model.Outcome) error {
		rec := model.NewRecord(v, description, s.now())
		if err := s.store.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("ingest: storing %s: %w", v.ID, err)
		}
		report.Added++
		if description.IsFailed() {
			report.ScrapeFailures++
		}
		s.logger.Debug("vacancy added", "id", v.ID, "title", v.Name, "description", description.State)
		return nil
	})
	return report, err
}

// fetchAll reads page 0 for the page count, then the remaining pages on a
// bounded group. Items are returned in page order.
func (s *IngestStage) fetchAll(ctx context.Context) ([]model.Vacancy, int, error) {
	first, err := s.source.FetchPage(ctx, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: fetching page 0: %w", err)
	}
	if first.Pages <= 1 {
		return first.Items, 1, nil
	}

	rest := make([][]model.Vacancy, first.Pages-1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pageConcurrency)
	for page := 1; page < first.Pages; page++ {
		g.Go(func() error {
			p, err := s.source.FetchPage(gctx, page)
			if err != nil {
				return fmt.Errorf("ingest: fetching page %d: %w", page, err)
			}
			rest[page-1] = p.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	items := first.Items
	for _, pageItems := range rest {
		items = append(items, pageItems...)
	}
	return items, first.Pages, nil
}

// enrich scrapes descriptions on a bounded pool and hands results to store in
// input order, each as soon as it and all earlier ones are ready.
func (s *IngestStage) enrich(ctx context.Context, vacancies []model.Vacancy, store func(model.Vacancy, model.Outcome) error) error {
	if len(vacancies) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	type slot struct {
		description model.Outcome
		done        chan struct{}
	}
	slots := make([]slot, len(vacancies))
	for i := range slots {
		slots[i].done = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(s.scrapeConcurrency)
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, v := range vacancies {
			g.Go(func() error {
				defer close(slots[i].done)
				slots[i].description = s.describe(ctx, v)
				return nil
			})
		}
	}()
	defer func() {
		cancel()
		<-launched
		_ = g.Wait()
	}()

	for i, v := range vacancies {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-slots[i].done:
		}
		// A scrape cut short by cancellation is not a real failure.
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store(v, slots[i].description); err != nil {
			return err
		}
	}
	return nil
}

func (s *IngestStage) describe(ctx context.Context, v model.Vacancy) model.Outcome {
	text, err := s.scraper.Scrape(ctx, v.URL)
	if err != nil {
		s.logger.Warn("description scrape failed", "id", v.ID, "url", v.URL, "error", err)
		return model.Failed("Error: " + err.Error())
	}
	return model.Succeeded(text)
}
