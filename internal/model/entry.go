package model

import (
	"fmt"
	"strings"
	"time"
)

// Criticality is the risk label assigned to a scored log line.
type Criticality int

const (
	Low Criticality = iota
	Medium
	High
)

func (c Criticality) String() string {
	switch c {
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	default:
		return "LOW"
	}
}

// MarshalText encodes the criticality as a lowercase label.
func (c Criticality) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(c.String())), nil
}

// UnmarshalText accepts any label understood by ParseCriticality.
func (c *Criticality) UnmarshalText(text []byte) error {
	v, err := ParseCriticality(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseCriticality parses "low", "medium" or "high" (case-insensitive).
func ParseCriticality(s string) (Criticality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "":
		return Low, nil
	case "medium", "med":
		return Medium, nil
	case "high":
		return High, nil
	default:
		return Low, fmt.Errorf("unknown criticality %q", s)
	}
}

// TokenDiagnostic records how one token of a line compared against the dictionary.
type TokenDiagnostic struct {
	Token        string  `json:"token"`
	Distance     int     `json:"distance"`
	NearestToken string  `json:"nearest_token,omitempty"`
	Overlap      float64 `json:"overlap"`
	OverlapToken string  `json:"overlap_token,omitempty"`
}

// Verdict is a scored log line.
type Verdict struct {
	Timestamp   time.Time         `json:"timestamp"`
	Source      string            `json:"source"` // originating file path
	Line        int               `json:"line"`   // 1-based line number in Source
	Raw         string            `json:"raw"`    // line text as read
	Criticality Criticality       `json:"criticality"`
	Score       float64           `json:"score"`
	AvgDistance float64           `json:"avg_distance"`
	Normalized  float64           `json:"normalized_distance"`
	AvgOverlap  float64           `json:"avg_overlap"`
	Tokens      []TokenDiagnostic `json:"tokens,omitempty"`
}
