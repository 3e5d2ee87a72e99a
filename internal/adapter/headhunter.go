package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amishk599/vacancyfeed/internal/model"
)

const headHunterBaseURL = "https://api.hh.ru"

// hhResponse is the envelope of the hh.ru /vacancies search endpoint.
type hhResponse struct {
	Items   []hhVacancy `json:"items"`
	Found   int         `json:"found"`
	Pages   int         `json:"pages"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

type hhVacancy struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	AlternateURL string     `json:"alternate_url"`
	PublishedAt  string     `json:"published_at"`
	Salary       *hhSalary  `json:"salary"`
	Employer     hhEmployer `json:"employer"`
}

type hhSalary struct {
	From     *int    `json:"from"`
	To       *int    `json:"to"`
	Currency *string `json:"currency"`
}

type hhEmployer struct {
	Name                 *string `json:"name"`
	AccreditedITEmployer bool    `json:"accredited_it_employer"`
}

// HeadHunterQuery holds the fixed search parameters sent with every page request.
type HeadHunterQuery struct {
	Text       string
	PerPage    int
	Schedule   string // e.g. "fullDay"; empty omits the parameter
	WorkFormat string // e.g. "REMOTE"; empty omits the parameter
}

// HeadHunterSource fetches vacancy search pages from the hh.ru public API.
type HeadHunterSource struct {
	baseURL   string
	query     HeadHunterQuery
	userAgent string
	client    *http.Client
}

// NewHeadHunterSource creates a source for the given query. An empty baseURL
// selects the public API.
func NewHeadHunterSource(baseURL string, query HeadHunterQuery, userAgent string, client *http.Client) *HeadHunterSource {
	if baseURL == "" {
		baseURL = headHunterBaseURL
	}
	return &HeadHunterSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		query:     query,
		userAgent: userAgent,
		client:    client,
	}
}

// FetchPage retrieves one page of search results and normalizes the items.
func (s *HeadHunterSource) FetchPage(ctx context.Context, page int) (model.SearchPage, error) {
	params := url.Values{}
	params.Set("text", s.query.Text)
	params.Set("per_page", strconv.Itoa(s.query.PerPage))
	params.Set("page", strconv.Itoa(page))
	if s.query.Schedule != "" {
		params.Set("schedule", s.query.Schedule)
	}
	if s.query.WorkFormat != "" {
		params.Set("work_format", s.query.WorkFormat)
	}
	endpoint := s.baseURL + "/vacancies?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.SearchPage{}, fmt.Errorf("hh search request page %d: %w", page, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.SearchPage{}, fmt.Errorf("hh search fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.SearchPage{}, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("hh search fetch page %d: unexpected status %d", page, resp.StatusCode),
		}
	}

	var hhResp hhResponse
	if err := json.NewDecoder(resp.Body).Decode(&hhResp); err != nil {
		return model.SearchPage{}, fmt.Errorf("hh search decode page %d: %w", page, err)
	}

	items := make([]model.Vacancy, 0, len(hhResp.Items))
	for _, hv := range hhResp.Items {
		v := model.Vacancy{
			ID:          hv.ID,
			Name:        hv.Name,
			URL:         hv.AlternateURL,
			PublishedAt: hv.PublishedAt,
			Employer: model.Employer{
				Name:         hv.Employer.Name,
				AccreditedIT: hv.Employer.AccreditedITEmployer,
			},
		}
		if hv.Salary != nil {
			v.Salary = &model.Salary{
				From:     hv.Salary.From,
				To:       hv.Salary.To,
				Currency: hv.Salary.Currency,
			}
		}
		items = append(items, v)
	}

	return model.SearchPage{Page: hhResp.Page, Pages: hhResp.Pages, Items: items}, nil
}
