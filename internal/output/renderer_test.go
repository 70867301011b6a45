package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/atikulmunna/logsieve/internal/aggregator"
	"github.com/atikulmunna/logsieve/internal/model"
)

func sampleVerdict() model.Verdict {
	return model.Verdict{
		Timestamp:   time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC),
		Source:      "access.log",
		Line:        7,
		Raw:         "GET /api/user?id=5",
		Criticality: model.High,
		Score:       1,
		Tokens: []model.TokenDiagnostic{
			{Token: "api", NearestToken: "api", Overlap: 1, OverlapToken: "api"},
		},
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	renderer := &JSONRenderer{enc: json.NewEncoder(&buf)}

	if err := renderer.Render(sampleVerdict()); err != nil {
		t.Fatal(err)
	}

	var got model.Verdict
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nraw: %s", err, buf.String())
	}

	if got.Criticality != model.High {
		t.Errorf("expected HIGH, got %s", got.Criticality)
	}
	if got.Raw != "GET /api/user?id=5" {
		t.Errorf("expected raw line, got %q", got.Raw)
	}
	if got.Line != 7 || got.Source != "access.log" {
		t.Errorf("expected access.log:7, got %s:%d", got.Source, got.Line)
	}
	if !strings.Contains(buf.String(), `"criticality":"high"`) {
		t.Errorf("expected lowercase criticality label, got %s", buf.String())
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := &TextRenderer{w: &buf, verbose: true}

	if err := r.Render(sampleVerdict()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"HIGH", "access.log:7", "GET /api/user?id=5", "1.000", `"api"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSummary(t *testing.T) {
	stats := aggregator.Stats{
		TotalScored: 3,
		Counts:      map[string]int64{"LOW": 1, "MEDIUM": 1, "HIGH": 1},
		Flagged:     1,
	}

	var buf bytes.Buffer
	if err := (&JSONRenderer{enc: json.NewEncoder(&buf)}).Summary(stats); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Summary aggregator.Stats `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Summary.TotalScored != 3 || got.Summary.Flagged != 1 {
		t.Errorf("unexpected summary %+v", got.Summary)
	}

	buf.Reset()
	if err := (&TextRenderer{w: &buf}).Summary(stats); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "scored 3") {
		t.Errorf("unexpected text summary %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("xml", &bytes.Buffer{}, false); err == nil {
		t.Error("expected error for unknown format")
	}
	if r, err := New("JSON", &bytes.Buffer{}, false); err != nil {
		t.Fatal(err)
	} else if _, ok := r.(*JSONRenderer); !ok {
		t.Errorf("expected JSONRenderer, got %T", r)
	}
}
