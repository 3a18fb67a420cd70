// Package render turns note markdown into display output: sanitised HTML
// for the web API and styled ANSI text for the terminal.
package render

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown into a display format.
type Renderer interface {
	Render(markdown string) (string, error)
}

// HTML renders GitHub-flavoured markdown with hard line breaks and strips
// anything unsafe from the result.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTML returns an HTML renderer.
func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render returns sanitised HTML for markdown.
func (h *HTML) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return string(h.policy.SanitizeBytes(buf.Bytes())), nil
}

// Terminal renders markdown for an ANSI terminal.
type Terminal struct {
	r *glamour.TermRenderer
}

// NewTerminal returns a terminal renderer wrapping at width columns.
func NewTerminal(width int) (*Terminal, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("render: terminal: %w", err)
	}
	return &Terminal{r: r}, nil
}

func (t *Terminal) Render(markdown string) (string, error) {
	out, err := t.r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render: terminal: %w", err)
	}
	return out, nil
}
