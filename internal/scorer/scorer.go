// Package scorer rates log lines by how closely their tokens resemble the
// reference dictionary and maps the composite score to a criticality.
//
// For every token of a line the scorer finds the smallest edit distance and
// the largest bigram overlap against the whole dictionary. Both are averaged
// over the line's tokens; the averaged distance is normalized by the longest
// dictionary token and blended with the averaged overlap.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/atikulmunna/logsieve/internal/dictionary"
	"github.com/atikulmunna/logsieve/internal/model"
	"github.com/atikulmunna/logsieve/internal/parser"
	"github.com/atikulmunna/logsieve/internal/similarity"
)

// Config holds the blend weights and criticality thresholds.
type Config struct {
	DistanceWeight  float64
	OverlapWeight   float64
	MediumThreshold float64
	HighThreshold   float64
}

// DefaultConfig returns an even blend with Medium at 0.3 and High at 0.7.
func DefaultConfig() Config {
	return Config{
		DistanceWeight:  0.5,
		OverlapWeight:   0.5,
		MediumThreshold: 0.3,
		HighThreshold:   0.7,
	}
}

// Validate checks weights and thresholds.
func (c Config) Validate() error {
	if c.DistanceWeight < 0 || c.OverlapWeight < 0 {
		return errors.New("scoring weights must be non-negative")
	}
	if c.DistanceWeight+c.OverlapWeight == 0 {
		return errors.New("scoring weights must not both be zero")
	}
	if c.MediumThreshold < 0 || c.HighThreshold > 1 || c.MediumThreshold > c.HighThreshold {
		return fmt.Errorf("thresholds must satisfy 0 <= medium (%.2f) <= high (%.2f) <= 1", c.MediumThreshold, c.HighThreshold)
	}
	return nil
}

// Classify maps a composite score to a criticality.
func (c Config) Classify(score float64) model.Criticality {
	switch {
	case score >= c.HighThreshold:
		return model.High
	case score >= c.MediumThreshold:
		return model.Medium
	default:
		return model.Low
	}
}

// Result is the outcome of scoring one line.
type Result struct {
	Criticality model.Criticality
	Score       float64
	AvgDistance float64
	Normalized  float64
	AvgOverlap  float64
	Tokens      []model.TokenDiagnostic
}

// Scorer scores lines against an immutable dictionary snapshot.
// It is safe for concurrent use.
type Scorer struct {
	dict *dictionary.Dictionary
	tok  *parser.Tokenizer
	cfg  Config
	wd   float64 // normalized distance weight
	wo   float64 // normalized overlap weight
}

// New returns a Scorer. A nil tokenizer is an error; an empty dictionary is not.
func New(dict *dictionary.Dictionary, tok *parser.Tokenizer, cfg Config) (*Scorer, error) {
	if tok == nil {
		return nil, errors.New("scorer: nil tokenizer")
	}
	if dict == nil {
		dict = dictionary.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	sum := cfg.DistanceWeight + cfg.OverlapWeight
	return &Scorer{
		dict: dict,
		tok:  tok,
		cfg:  cfg,
		wd:   cfg.DistanceWeight / sum,
		wo:   cfg.OverlapWeight / sum,
	}, nil
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config { return s.cfg }

// Dictionary returns the dictionary snapshot being scored against.
func (s *Scorer) Dictionary() *dictionary.Dictionary { return s.dict }

// ScoreLine scores one raw log line.
func (s *Scorer) ScoreLine(line string) Result {
	tokens := s.tok.Tokens(line)

	diags := make([]model.TokenDiagnostic, len(tokens))
	var sumDist, sumOverlap float64
	for i, t := range tokens {
		diags[i] = s.compare(t)
		sumDist += float64(diags[i].Distance)
		sumOverlap += diags[i].Overlap
	}

	var avgDist, avgOverlap float64
	if n := len(tokens); n > 0 {
		avgDist = sumDist / float64(n)
		avgOverlap = sumOverlap / float64(n)
	}

	var normalized float64
	if maxLen := s.dict.MaxTokenLen(); maxLen > 0 {
		normalized = clamp01(1 - avgDist/float64(maxLen))
	}

	score := clamp01(s.wd*normalized + s.wo*avgOverlap)
	return Result{
		Criticality: s.cfg.Classify(score),
		Score:       score,
		AvgDistance: avgDist,
		Normalized:  normalized,
		AvgOverlap:  avgOverlap,
		Tokens:      diags,
	}
}

// IsMalicious reports whether line scores High.
func (s *Scorer) IsMalicious(line string) bool {
	return s.ScoreLine(line).Criticality == model.High
}

// ScoreBatch scores lines on up to workers goroutines and returns results in
// input order. workers <= 0 uses GOMAXPROCS.
func (s *Scorer) ScoreBatch(ctx context.Context, lines []string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(lines))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.ScoreLine(line)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// compare finds the nearest dictionary token by edit distance and the best
// bigram overlap. With an empty dictionary both stay zero; OverlapToken stays
// empty when nothing overlaps.
func (s *Scorer) compare(tok string) model.TokenDiagnostic {
	d := model.TokenDiagnostic{Token: tok}
	first := true
	s.dict.Each(func(ref string) {
		dist := similarity.EditDistance(tok, ref)
		if first || dist < d.Distance {
			d.Distance = dist
			d.NearestToken = ref
		}
		if ov := similarity.BigramOverlap(tok, ref); ov > d.Overlap {
			d.Overlap = ov
			d.OverlapToken = ref
		}
		first = false
	})
	return d
}

// ScoreLine scores line against dict with the default configuration.
func ScoreLine(line string, delimiters []string, dict *dictionary.Dictionary) Result {
	s, _ := New(dict, parser.NewTokenizer(delimiters), DefaultConfig())
	return s.ScoreLine(line)
}

// IsMalicious reports whether line scores High with the default configuration.
func IsMalicious(line string, delimiters []string, dict *dictionary.Dictionary) bool {
	return ScoreLine(line, delimiters, dict).Criticality == model.High
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
