package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func sampleVacancy() Vacancy {
	from, to := 1000, 2000
	return Vacancy{
		ID:          "101",
		Name:        "Prompt Engineer",
		URL:         "https://hh.ru/vacancy/101",
		PublishedAt: "2025-03-14T09:30:00+0300",
		Salary:      &Salary{From: &from, To: &to, Currency: strPtr("RUB")},
		Employer:    Employer{Name: strPtr("Acme"), AccreditedIT: true},
	}
}

func TestNewRecord_CopiesVacancyFields(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rec := NewRecord(sampleVacancy(), Succeeded("full text"), now)

	if rec.ID != "101" || rec.Title != "Prompt Engineer" {
		t.Errorf("identity = %q/%q", rec.ID, rec.Title)
	}
	if rec.SalaryFrom == nil || *rec.SalaryFrom != 1000 {
		t.Errorf("SalaryFrom = %v, want 1000", rec.SalaryFrom)
	}
	if !rec.ITAccredited {
		t.Error("ITAccredited should be true")
	}
	if !rec.Summary.IsPending() {
		t.Errorf("Summary state = %s, want pending", rec.Summary.State)
	}
	if rec.Sent {
		t.Error("new record must not be sent")
	}
	if !rec.FirstSeenAt.Equal(now) {
		t.Errorf("FirstSeenAt = %v, want %v", rec.FirstSeenAt, now)
	}
}

func TestNewRecord_NoSalaryBlock(t *testing.T) {
	v := sampleVacancy()
	v.Salary = nil
	rec := NewRecord(v, Succeeded("x"), time.Now())
	if rec.SalaryFrom != nil || rec.SalaryTo != nil || rec.SalaryCurrency != nil {
		t.Errorf("salary fields should be absent, got %v %v %v", rec.SalaryFrom, rec.SalaryTo, rec.SalaryCurrency)
	}
}

func TestApplySummary_OnlyOnce(t *testing.T) {
	rec := NewRecord(sampleVacancy(), Succeeded("x"), time.Now())

	err := rec.ApplySummary(SummaryResult{
		Summary:          Succeeded("short"),
		PromptTokens:     1000,
		CompletionTokens: 10,
		Latency:          1500 * time.Millisecond,
		Cost:             0.5,
	})
	if err != nil {
		t.Fatalf("first ApplySummary: %v", err)
	}
	if *rec.GenerationLatencyMS != 1500 {
		t.Errorf("latency = %d, want 1500", *rec.GenerationLatencyMS)
	}

	err = rec.ApplySummary(SummaryResult{Summary: Failed("boom")})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second ApplySummary err = %v, want ErrInvalidTransition", err)
	}
	if rec.Summary.Text() != "short" {
		t.Errorf("summary changed to %q", rec.Summary.Text())
	}
}

func TestApplySummary_RejectsPendingResult(t *testing.T) {
	rec := NewRecord(sampleVacancy(), Succeeded("x"), time.Now())
	if err := rec.ApplySummary(SummaryResult{Summary: Pending()}); err == nil {
		t.Fatal("expected error applying a pending summary")
	}
}

func TestMarkSent_Monotonic(t *testing.T) {
	rec := NewRecord(sampleVacancy(), Succeeded("x"), time.Now())
	if err := rec.MarkSent(time.Now()); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if rec.SentAt == nil {
		t.Error("SentAt should be set")
	}
	if err := rec.MarkSent(time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second MarkSent err = %v, want ErrInvalidTransition", err)
	}
}

func TestMerge(t *testing.T) {
	base := NewRecord(sampleVacancy(), Succeeded("x"), time.Now())

	t.Run("copies summary and sent", func(t *testing.T) {
		stored := base
		next := base
		if err := next.ApplySummary(SummaryResult{Summary: Succeeded("s")}); err != nil {
			t.Fatal(err)
		}
		if err := next.MarkSent(time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := stored.Merge(next); err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if stored.Summary.Text() != "s" || !stored.Sent {
			t.Errorf("merged = %+v", stored)
		}
	})

	t.Run("keeps identity fields", func(t *testing.T) {
		stored := base
		next := base
		next.Title = "Renamed"
		if err := stored.Merge(next); err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if stored.Title != "Prompt Engineer" {
			t.Errorf("Title = %q, want unchanged", stored.Title)
		}
	})

	t.Run("rejects unsent revert", func(t *testing.T) {
		stored := base
		stored.Sent = true
		if err := stored.Merge(base); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("rejects summary revert", func(t *testing.T) {
		stored := base
		stored.Summary = Failed("Error: timeout")
		if err := stored.Merge(base); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("rejects id mismatch", func(t *testing.T) {
		stored := base
		other := base
		other.ID = "999"
		if err := stored.Merge(other); err == nil {
			t.Fatal("expected id mismatch error")
		}
	})
}

func TestOutcomeJSON(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		state OutcomeState
		value string
	}{
		{name: "pending sentinel", in: `false`, state: StatePending},
		{name: "null is pending", in: `null`, state: StatePending},
		{name: "plain string", in: `"summary text"`, state: StateSucceeded, value: "summary text"},
		{name: "failed object", in: `{"error":"Error: 500"}`, state: StateFailed, value: "Error: 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Outcome
			if err := json.Unmarshal([]byte(tt.in), &o); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if o.State != tt.state || o.Value != tt.value {
				t.Errorf("got %s/%q, want %s/%q", o.State, o.Value, tt.state, tt.value)
			}
			out, err := json.Marshal(o)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if tt.in != "null" && string(out) != tt.in {
				t.Errorf("Marshal = %s, want %s", out, tt.in)
			}
		})
	}
}

func TestOutcomeJSON_RejectsTrue(t *testing.T) {
	var o Outcome
	if err := json.Unmarshal([]byte(`true`), &o); err == nil {
		t.Fatal("expected error for true")
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatePending, StateSucceeded) || !CanTransition(StatePending, StateFailed) {
		t.Error("pending should move to a terminal state")
	}
	for _, from := range []OutcomeState{StateSucceeded, StateFailed} {
		for _, to := range []OutcomeState{StatePending, StateSucceeded, StateFailed} {
			if CanTransition(from, to) {
				t.Errorf("CanTransition(%s, %s) = true, terminal states have no exits", from, to)
			}
		}
	}
}

func TestPublishedTime(t *testing.T) {
	for _, raw := range []string{"2025-03-14T09:30:00+0300", "2025-03-14T09:30:00+03:00"} {
		rec := Record{PublishedAt: raw}
		got, err := rec.PublishedTime()
		if err != nil {
			t.Fatalf("PublishedTime(%q): %v", raw, err)
		}
		if got.Format("02.01.2006") != "14.03.2025" {
			t.Errorf("PublishedTime(%q) = %v", raw, got)
		}
	}

	if _, err := (Record{PublishedAt: "yesterday"}).PublishedTime(); err == nil {
		t.Error("expected parse error")
	}
}
