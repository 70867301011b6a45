package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/logsieve/internal/aggregator"
	"github.com/atikulmunna/logsieve/internal/model"
)

// Renderer writes verdicts to an output stream.
type Renderer interface {
	Render(v model.Verdict) error
	Summary(s aggregator.Stats) error
}

// New returns the renderer for format ("text" or "json") writing to w.
func New(format string, w io.Writer, verbose bool) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &TextRenderer{w: w, verbose: verbose}, nil
	case "json":
		return &JSONRenderer{enc: json.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))            // gray
	styleMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleSource = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
	styleScore  = lipgloss.NewStyle().Faint(true)
	styleHeader = lipgloss.NewStyle().Bold(true).Underline(true)
)

// TextRenderer prints verdicts to the terminal with criticality colors.
type TextRenderer struct {
	w       io.Writer
	verbose bool
}

func (r *TextRenderer) Render(v model.Verdict) error {
	tag := styleTag(v.Criticality)
	src := styleSource.Render(fmt.Sprintf("%s:%d", v.Source, v.Line))
	score := styleScore.Render(fmt.Sprintf("%.3f", v.Score))

	line := fmt.Sprintf("%s %s %s %s", tag, score, src, v.Raw)
	if _, err := fmt.Fprintln(r.w, line); err != nil {
		return err
	}
	if !r.verbose {
		return nil
	}
	for _, d := range v.Tokens {
		if _, err := fmt.Fprintf(r.w, "    %-24q dist=%d nearest=%q overlap=%.2f\n",
			d.Token, d.Distance, d.NearestToken, d.Overlap); err != nil {
			return err
		}
	}
	return nil
}

func (r *TextRenderer) Summary(s aggregator.Stats) error {
	_, err := fmt.Fprintf(r.w, "%s\n  scored %d  %s %d  %s %d  %s %d  mean %.3f  %.1f lines/s  uptime %s\n",
		styleHeader.Render("summary"),
		s.TotalScored,
		styleLow.Render("low"), s.Counts[model.Low.String()],
		styleMedium.Render("medium"), s.Counts[model.Medium.String()],
		styleHigh.Render("high"), s.Counts[model.High.String()],
		s.MeanScore, s.LPS, s.Uptime)
	return err
}

func styleTag(c model.Criticality) string {
	padded := fmt.Sprintf("%-6s", c)
	switch c {
	case model.High:
		return styleHigh.Render(padded)
	case model.Medium:
		return styleMedium.Render(padded)
	default:
		return styleLow.Render(padded)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each verdict as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

func (r *JSONRenderer) Render(v model.Verdict) error {
	return r.enc.Encode(v)
}

func (r *JSONRenderer) Summary(s aggregator.Stats) error {
	return r.enc.Encode(struct {
		Summary aggregator.Stats `json:"summary"`
	}{s})
}
