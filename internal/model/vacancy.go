package model

import (
	"context"
	"time"
)

// Vacancy is one search result as reported by the job board, normalized away
// from the board's wire format.
type Vacancy struct {
	ID          string   // stable, never reused by the board
	Name        string   // posting title
	URL         string   // human-facing posting page (hh.ru alternate_url)
	PublishedAt string   // ISO-8601, as provided by the board
	Salary      *Salary  // nil when the board has no salary block
	Employer    Employer // employer summary
}

// Salary is the optional salary block of a vacancy. Each bound may be absent.
type Salary struct {
	From     *int
	To       *int
	Currency *string
}

// Employer holds the employer fields the pipeline keeps.
type Employer struct {
	Name         *string
	AccreditedIT bool // hh.ru accredited_it_employer
}

// SearchPage is one page of a paginated search.
type SearchPage struct {
	Page  int
	Pages int // total page count reported in the envelope
	Items []Vacancy
}

// JobSource fetches one page of search results. Page numbering starts at 0.
type JobSource interface {
	FetchPage(ctx context.Context, page int) (SearchPage, error)
}

// DescriptionScraper fetches the full description text of a posting page.
type DescriptionScraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// GenerationRequest is a single chat completion request.
type GenerationRequest struct {
	Model        string
	Temperature  float64
	SystemPrompt string
	UserPrompt   string
}

// Generation is the result of a chat completion along with its usage.
type Generation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Elapsed          time.Duration
}

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (Generation, error)
}

// Message is a formatted chat message ready for delivery.
type Message struct {
	RecordID string
	Text     string // Telegram legacy Markdown
}

// Deliverer sends a formatted message to the destination channel.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// VacancyFilter decides whether a vacancy is worth ingesting.
type VacancyFilter interface {
	Match(v Vacancy) bool
}

// RecordStore is the durable, keyed collection of records driving the pipeline.
// Upsert persists before returning; callers rely on that ordering for resumability.
type RecordStore interface {
	Load(ctx context.Context) ([]Record, error)
	ExistingKeys(ctx context.Context) (map[string]struct{}, error)
	Upsert(ctx context.Context, rec Record) error
	SaveAll(ctx context.Context, records []Record) error
	Close() error
}
