package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amishk599/vacancyfeed/internal/model"
)

func TestHeadHunterFetchPage_Success(t *testing.T) {
	payload := `{
		"found": 2,
		"pages": 3,
		"page": 1,
		"per_page": 100,
		"items": [
			{
				"id": "101",
				"name": "Prompt Engineer",
				"alternate_url": "https://hh.ru/vacancy/101",
				"published_at": "2025-03-14T09:30:00+0300",
				"salary": {"from": 1000, "to": 2000, "currency": "RUR", "gross": false},
				"employer": {"id": "9", "name": "Acme", "accredited_it_employer": true}
			},
			{
				"id": "102",
				"name": "LLM Researcher",
				"alternate_url": "https://hh.ru/vacancy/102",
				"published_at": "2025-03-13T12:00:00+0300",
				"salary": null,
				"employer": {"name": "Beta"}
			}
		]
	}`

	var gotQuery map[string]string
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vacancies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	src := NewHeadHunterSource(srv.URL, HeadHunterQuery{
		Text:       "prompt",
		PerPage:    100,
		Schedule:   "fullDay",
		WorkFormat: "REMOTE",
	}, "api-test-agent", srv.Client())

	page, err := src.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{"text": "prompt", "per_page": "100", "page": "1", "schedule": "fullDay", "work_format": "REMOTE"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
	if gotUA != "api-test-agent" {
		t.Errorf("User-Agent = %q", gotUA)
	}

	if page.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", page.Pages)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}

	v := page.Items[0]
	if v.ID != "101" || v.Name != "Prompt Engineer" || v.URL != "https://hh.ru/vacancy/101" {
		t.Errorf("unexpected vacancy %+v", v)
	}
	if v.Salary == nil || *v.Salary.From != 1000 || *v.Salary.To != 2000 || *v.Salary.Currency != "RUR" {
		t.Errorf("unexpected salary %+v", v.Salary)
	}
	if !v.Employer.AccreditedIT || *v.Employer.Name != "Acme" {
		t.Errorf("unexpected employer %+v", v.Employer)
	}

	if page.Items[1].Salary != nil {
		t.Errorf("expected nil salary for null block, got %+v", page.Items[1].Salary)
	}
	if page.Items[1].Employer.AccreditedIT {
		t.Error("missing accredited flag should be false")
	}
}

func TestHeadHunterFetchPage_OmitsEmptyFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("schedule") || r.URL.Query().Has("work_format") {
			t.Errorf("empty filters should be omitted, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"items": [], "pages": 0}`))
	}))
	defer srv.Close()

	src := NewHeadHunterSource(srv.URL, HeadHunterQuery{Text: "go", PerPage: 20}, "", srv.Client())
	page, err := src.FetchPage(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("expected no items, got %d", len(page.Items))
	}
}

func TestHeadHunterFetchPage_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewHeadHunterSource(srv.URL, HeadHunterQuery{Text: "x", PerPage: 1}, "", srv.Client())
	_, err := src.FetchPage(context.Background(), 0)

	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected HTTPError with status 429, got: %v", err)
	}
	if httpErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", httpErr.RetryAfter)
	}
}

func TestHeadHunterFetchPage_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	src := NewHeadHunterSource(srv.URL, HeadHunterQuery{Text: "x", PerPage: 1}, "", srv.Client())
	if _, err := src.FetchPage(context.Background(), 0); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}
