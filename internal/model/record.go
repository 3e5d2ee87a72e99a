package model

import (
	"fmt"
	"time"
)

// Record is one job posting's full state across the ingest, summarize and
// publish stages. Identity fields are fixed at creation; only the summary,
// its metrics and the sent flag change afterwards.
type Record struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	SalaryFrom     *int    `json:"salary_from"`
	SalaryTo       *int    `json:"salary_to"`
	SalaryCurrency *string `json:"salary_currency"`
	Description    Outcome `json:"description"`
	Summary        Outcome `json:"summary"`
	Company        *string `json:"company"`
	ITAccredited   bool    `json:"is_it_accredited"`
	PublishedAt    string  `json:"published_at"`
	URL            string  `json:"url"`
	Sent           bool    `json:"sent"`

	InputWordCount      *int     `json:"input_word_count,omitempty"`
	InputTokenCount     *int     `json:"input_token_count,omitempty"`
	OutputTokenCount    *int     `json:"output_token_count,omitempty"`
	GenerationLatencyMS *int64   `json:"generation_latency_ms,omitempty"`
	CostEstimate        *float64 `json:"cost_estimate,omitempty"`

	FirstSeenAt time.Time  `json:"first_seen_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}

// NewRecord builds a fresh record for a vacancy seen for the first time.
func NewRecord(v Vacancy, description Outcome, now time.Time) Record {
	rec := Record{
		ID:           v.ID,
		Title:        v.Name,
		Description:  description,
		Summary:      Pending(),
		Company:      v.Employer.Name,
		ITAccredited: v.Employer.AccreditedIT,
		PublishedAt:  v.PublishedAt,
		URL:          v.URL,
		FirstSeenAt:  now.UTC(),
	}
	if v.Salary != nil {
		rec.SalaryFrom = v.Salary.From
		rec.SalaryTo = v.Salary.To
		rec.SalaryCurrency = v.Salary.Currency
	}
	return rec
}

// SummaryResult carries everything the summarize stage learns about a record.
type SummaryResult struct {
	Summary          Outcome
	InputWords       int
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
	Cost             float64
}

// ApplySummary terminalizes the summary. It fails if the summary is already
// terminal or if res does not carry a terminal outcome.
func (r *Record) ApplySummary(res SummaryResult) error {
	if !CanTransition(r.Summary.State, res.Summary.State) {
		return fmt.Errorf("%w: record %s summary %s -> %s",
			ErrInvalidTransition, r.ID, r.Summary.State, res.Summary.State)
	}
	r.Summary = res.Summary
	r.InputWordCount = intPtr(res.InputWords)
	r.InputTokenCount = intPtr(res.PromptTokens)
	r.OutputTokenCount = intPtr(res.CompletionTokens)
	ms := res.Latency.Milliseconds()
	r.GenerationLatencyMS = &ms
	cost := res.Cost
	r.CostEstimate = &cost
	return nil
}

// MarkSent flags the record as delivered.
func (r *Record) MarkSent(at time.Time) error {
	if r.Sent {
		return fmt.Errorf("%w: record %s already sent", ErrInvalidTransition, r.ID)
	}
	r.Sent = true
	t := at.UTC()
	r.SentAt = &t
	return nil
}

// Merge applies the mutable fields of next onto r. Identity fields of r are
// kept as stored. Reverting a terminal summary or the sent flag is rejected.
func (r *Record) Merge(next Record) error {
	if r.ID != next.ID {
		return fmt.Errorf("merge record %s with %s: id mismatch", r.ID, next.ID)
	}

	if next.Summary != r.Summary {
		if !CanTransition(r.Summary.State, next.Summary.State) {
			return fmt.Errorf("%w: record %s summary %s -> %s",
				ErrInvalidTransition, r.ID, r.Summary.State, next.Summary.State)
		}
		r.Summary = next.Summary
		r.InputWordCount = next.InputWordCount
		r.InputTokenCount = next.InputTokenCount
		r.OutputTokenCount = next.OutputTokenCount
		r.GenerationLatencyMS = next.GenerationLatencyMS
		r.CostEstimate = next.CostEstimate
	}

	if r.Sent && !next.Sent {
		return fmt.Errorf("%w: record %s sent -> unsent", ErrInvalidTransition, r.ID)
	}
	if !r.Sent && next.Sent {
		r.Sent = true
		r.SentAt = next.SentAt
	}
	return nil
}

// HasFailure reports whether the description or summary is a captured failure.
func (r Record) HasFailure() bool {
	return r.Description.IsFailed() || r.Summary.IsFailed()
}

// hh.ru emits offsets without a colon ("+0300").
var publishedLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

// PublishedTime parses PublishedAt.
func (r Record) PublishedTime() (time.Time, error) {
	var lastErr error
	for _, layout := range publishedLayouts {
		t, err := time.Parse(layout, r.PublishedAt)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parse published_at %q: %w", r.PublishedAt, lastErr)
}

func intPtr(v int) *int { return &v }
