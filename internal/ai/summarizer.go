package ai

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/amishk599/vacancyfeed/internal/model"
)

// DefaultSystemPrompt is the fixed system message sent with every summary request.
const DefaultSystemPrompt = "You are a large language model and a personal assistant. " +
	"Answer in Russian and strictly to the request."

// Pricing is the price per 1000 prompt and completion tokens.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Cost returns the estimated spend for one generation.
func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	return p.InputPer1K*float64(promptTokens)/1000 + p.OutputPer1K*float64(completionTokens)/1000
}

// SummarizerSettings configures an LLMSummarizer.
type SummarizerSettings struct {
	Model        string
	Temperature  float64
	SystemPrompt string
	Pricing      Pricing
}

// LLMSummarizer renders the prompt template around a description and asks a
// TextGenerator for the summary.
type LLMSummarizer struct {
	gen      model.TextGenerator
	tmpl     *template.Template
	settings SummarizerSettings
}

// NewLLMSummarizer creates a summarizer. A nil tmpl selects the embedded default.
func NewLLMSummarizer(gen model.TextGenerator, tmpl *template.Template, settings SummarizerSettings) *LLMSummarizer {
	if tmpl == nil {
		tmpl = DefaultSummaryTemplate
	}
	if settings.SystemPrompt == "" {
		settings.SystemPrompt = DefaultSystemPrompt
	}
	return &LLMSummarizer{gen: gen, tmpl: tmpl, settings: settings}
}

// Summarize returns a terminal SummaryResult for description. On a generation
// error the result still carries the input word count; the caller records the
// failure.
func (s *LLMSummarizer) Summarize(ctx context.Context, description string) (model.SummaryResult, error) {
	var promptBuf bytes.Buffer
	if err := s.tmpl.Execute(&promptBuf, promptData{Description: description}); err != nil {
		return model.SummaryResult{}, fmt.Errorf("render prompt: %w", err)
	}
	prompt := promptBuf.String()

	res := model.SummaryResult{InputWords: len(strings.Fields(prompt))}

	gen, err := s.gen.Generate(ctx, model.GenerationRequest{
		Model:        s.settings.Model,
		Temperature:  s.settings.Temperature,
		SystemPrompt: s.settings.SystemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		return res, fmt.Errorf("generate summary: %w", err)
	}

	res.Summary = model.Succeeded(strings.TrimSpace(gen.Text))
	res.PromptTokens = gen.PromptTokens
	res.CompletionTokens = gen.CompletionTokens
	res.Latency = gen.Elapsed
	res.Cost = s.settings.Pricing.Cost(gen.PromptTokens, gen.CompletionTokens)
	return res, nil
}

// ExcerptSummarizer is used when ai.enabled is false. It takes the first words
// of the description with no LLM calls and zero cost.
type ExcerptSummarizer struct {
	words int
}

// NewExcerptSummarizer returns an ExcerptSummarizer keeping at most words words.
func NewExcerptSummarizer(words int) *ExcerptSummarizer {
	if words <= 0 {
		words = 60
	}
	return &ExcerptSummarizer{words: words}
}

func (e *ExcerptSummarizer) Summarize(_ context.Context, description string) (model.SummaryResult, error) {
	fields := strings.Fields(description)
	text := strings.Join(fields, " ")
	if len(fields) > e.words {
		text = strings.Join(fields[:e.words], " ") + "…"
	}
	return model.SummaryResult{
		Summary:    model.Succeeded(text),
		InputWords: len(fields),
	}, nil
}
