package ai

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed prompts/summary.md
var summaryPromptRaw string

// legacyPlaceholder is the format-string placeholder used by older prompt files.
const legacyPlaceholder = "{llm_input}"

// DefaultSummaryTemplate is the embedded prompt used when no prompt file is configured.
var DefaultSummaryTemplate = template.Must(ParseTemplate("summary", summaryPromptRaw))

// ParseTemplate parses a prompt template with one {{.Description}} placeholder.
// Prompt files written for the older "{llm_input}" placeholder are accepted too.
func ParseTemplate(name, text string) (*template.Template, error) {
	text = strings.ReplaceAll(text, legacyPlaceholder, "{{.Description}}")
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt template %s: %w", name, err)
	}

	const probe = "\x00description\x00"
	var b strings.Builder
	if err := tmpl.Execute(&b, promptData{Description: probe}); err != nil {
		return nil, fmt.Errorf("prompt template %s: %w", name, err)
	}
	if !strings.Contains(b.String(), probe) {
		return nil, fmt.Errorf("prompt template %s: missing {{.Description}} placeholder", name)
	}
	return tmpl, nil
}

// promptData is the value prompt templates are executed against.
type promptData struct {
	Description string
}

// LoadTemplate reads a prompt template from path. An empty path returns the
// embedded default.
func LoadTemplate(path string) (*template.Template, error) {
	if path == "" {
		return DefaultSummaryTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	return ParseTemplate(path, string(data))
}
