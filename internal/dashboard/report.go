package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	mdstyles "github.com/charmbracelet/glamour/styles"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/metrics"
)

// Report is a finished run as printed by the run and show commands. Either
// Bundle or Failure is set.
type Report struct {
	Params  battery.Parameters
	Bundle  *battery.SeriesBundle
	Failure string
	// Header is an optional line printed under the title, such as a run id.
	Header string
}

type RenderOptions struct {
	Width int
	Theme string
	// Markdown selects the glamour style for the verdict, for example
	// "auto" or "notty".
	Markdown string
}

// NewMarkdownRenderer builds the verdict renderer.
func NewMarkdownRenderer(style string, width int) (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width), glamour.WithEmoji()}
	switch style {
	case "", mdstyles.AutoStyle:
		opts = append(opts, glamour.WithAutoStyle())
	case mdstyles.NoTTYStyle, mdstyles.DarkStyle, mdstyles.LightStyle, mdstyles.AsciiStyle:
		opts = append(opts, glamour.WithStandardStyle(style))
	default:
		return nil, fmt.Errorf("unknown markdown style %q", style)
	}
	return glamour.NewTermRenderer(opts...)
}

// RenderReport draws metrics, the eight-panel grid and the verdict, or the
// divergence message when the run failed.
func RenderReport(r Report, opts RenderOptions) (string, error) {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	st := newStyles(GetTheme(opts.Theme))

	var b strings.Builder
	if r.Header != "" {
		b.WriteString(st.status.Render(r.Header) + "\n")
	}
	b.WriteString(st.label.Render(describe(r.Params)) + "\n\n")

	if r.Failure != "" {
		b.WriteString(renderDivergence(r.Failure, st) + "\n")
		return b.String(), nil
	}
	if r.Bundle == nil {
		return "", fmt.Errorf("report has neither series nor failure")
	}

	b.WriteString(st.title.Render(Title) + "\n\n")
	s := metrics.Summarize(r.Bundle, r.Params)
	b.WriteString(renderMetrics(Metrics(s), st, opts.Width) + "\n")
	b.WriteString(st.subheader.Render(GridHeading) + "\n")
	b.WriteString(renderGrid(r.Bundle, opts.Width, st) + "\n")
	b.WriteString(st.subheader.Render(VerdictHeading) + "\n")

	md, err := NewMarkdownRenderer(opts.Markdown, opts.Width)
	if err != nil {
		return "", err
	}
	verdict, err := md.Render(VerdictMarkdown(s.Verdict()))
	if err != nil {
		return "", fmt.Errorf("render verdict: %w", err)
	}
	b.WriteString(verdict)
	return b.String(), nil
}

func describe(p battery.Parameters) string {
	parts := []string{p.Chemistry.Label()}
	for _, c := range battery.Controls() {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %g %s", c.Label, p.Get(c.Key), c.Unit)))
	}
	return strings.Join(parts, " · ")
}
