package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/net/html"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// DefaultDescriptionSelector is the data-qa value of the description block on
// hh.ru vacancy pages.
const DefaultDescriptionSelector = "vacancy-description"

// errDescriptionNotFound is returned when the page has no description element.
var errDescriptionNotFound = errors.New("description element not found")

// PageScraper fetches a vacancy page and extracts the text of the element
// whose data-qa attribute equals the configured selector.
type PageScraper struct {
	dataQA    string
	userAgent string
	client    *http.Client
}

// NewPageScraper creates a scraper. An empty dataQA selects DefaultDescriptionSelector.
func NewPageScraper(dataQA string, userAgent string, client *http.Client) *PageScraper {
	if dataQA == "" {
		dataQA = DefaultDescriptionSelector
	}
	return &PageScraper{dataQA: dataQA, userAgent: userAgent, client: client}
}

// Scrape returns the description text of the page at url.
func (s *PageScraper) Scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("scrape request %s: %w", url, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("scrape fetch %s: unexpected status %d", url, resp.StatusCode),
		}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("scrape parse %s: %w", url, err)
	}

	node := findByAttr(doc, "data-qa", s.dataQA)
	if node == nil {
		return "", fmt.Errorf("scrape %s: %w", url, errDescriptionNotFound)
	}

	text := nodeText(node)
	if text == "" {
		return "", fmt.Errorf("scrape %s: description element is empty", url)
	}
	return text, nil
}
