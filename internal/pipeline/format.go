package pipeline

import (
	"math"
	"strconv"
	"strings"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// FormatOptions controls the rendered chat message.
type FormatOptions struct {
	SupportURL string // optional donation link in the footer
	CostUnit   string // currency sign appended to the cost, e.g. "₽"
}

// SalaryLine renders the salary range. Absent parts render as empty strings;
// when nothing is known the line reads "salary not specified".
func SalaryLine(from, to *int, currency *string) string {
	var f, t, c string
	if from != nil {
		f = "from " + strconv.Itoa(*from) + " "
	}
	if to != nil {
		t = "to " + strconv.Itoa(*to) + " "
	}
	if currency != nil {
		c = *currency
	}
	if f == t && t == c {
		return "salary not specified"
	}
	return strings.TrimSpace(f + t + c)
}

// FormatMessage renders rec as a Telegram legacy-Markdown post.
func FormatMessage(rec model.Record, opts FormatOptions) string {
	published := rec.PublishedAt
	if t, err := rec.PublishedTime(); err == nil {
		published = t.Format("02.01.2006")
	}

	company := "company not specified"
	if rec.Company != nil && *rec.Company != "" {
		company = *rec.Company
	}
	it := "no"
	if rec.ITAccredited {
		it = "yes"
	}

	var cost float64
	if rec.CostEstimate != nil {
		cost = *rec.CostEstimate
	}
	var latency int64
	if rec.GenerationLatencyMS != nil {
		latency = *rec.GenerationLatencyMS
	}
	footer := "Cost: " + formatCost(cost) + " " + opts.CostUnit + " | " + strconv.FormatInt(latency, 10) + " ms"
	if opts.SupportURL != "" {
		footer += " | [Support](" + opts.SupportURL + ")"
	}

	rows := []string{
		"*Vacancy* from " + published,
		"",
		"[" + linkText(rec.Title) + "](" + rec.URL + ")",
		SalaryLine(rec.SalaryFrom, rec.SalaryTo, rec.SalaryCurrency),
		"",
		escapeMarkdown(rec.Summary.Text()),
		"",
		"_" + strings.ReplaceAll(company, "_", " ") + ", IT: " + it + "_",
		"",
		footer,
	}
	return strings.Join(rows, "\n")
}

func formatCost(c float64) string {
	return strconv.FormatFloat(math.Round(c*100)/100, 'f', -1, 64)
}

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// escapeMarkdown makes free text safe outside entities in legacy Markdown.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// linkText keeps square brackets out of a link label.
func linkText(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}
