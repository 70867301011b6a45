package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Extractor pulls the request ("METHOD target") out of a raw log line.
// Lines an Extractor does not recognise are returned unchanged.
type Extractor interface {
	Extract(raw string) string
}

// NewExtractor returns the extractor for a format name: raw, clf, json or auto.
func NewExtractor(format string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "raw":
		return RawExtractor{}, nil
	case "clf":
		return NewCLFExtractor(), nil
	case "json":
		return JSONExtractor{}, nil
	case "auto":
		return NewAutoExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// RawExtractor treats the whole line as the request.
type RawExtractor struct{}

func (RawExtractor) Extract(raw string) string { return raw }

// ---------------------------------------------------------------------------
// CLF (Common / Combined Log Format)
// ---------------------------------------------------------------------------

// CLFExtractor handles Apache/Nginx access log lines.
// Format: host ident authuser [date] "request" status bytes
type CLFExtractor struct {
	re *regexp.Regexp
}

func NewCLFExtractor() *CLFExtractor {
	return &CLFExtractor{
		re: regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\d{3}) (\S+)`),
	}
}

func (e *CLFExtractor) Extract(raw string) string {
	m := e.re.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return requestLine(m[5])
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

// JSONExtractor reads structured access logs.
// Recognizes method plus one of path/uri/url, or a full request field.
type JSONExtractor struct{}

func (JSONExtractor) Extract(raw string) string {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return raw
	}

	if target, ok := strField(data, "path", "uri", "url"); ok {
		method, ok := strField(data, "method", "verb")
		if !ok {
			method = "-"
		}
		return method + " " + target
	}
	if req, ok := strField(data, "request"); ok {
		return requestLine(req)
	}
	return raw
}

// ---------------------------------------------------------------------------
// Auto
// ---------------------------------------------------------------------------

// AutoExtractor tries JSON, then CLF, then falls back to the raw line.
type AutoExtractor struct {
	clf *CLFExtractor
}

func NewAutoExtractor() *AutoExtractor {
	return &AutoExtractor{clf: NewCLFExtractor()}
}

func (e *AutoExtractor) Extract(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if out := (JSONExtractor{}).Extract(trimmed); out != trimmed {
			return out
		}
	}
	return e.clf.Extract(raw)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// requestLine reduces "GET /x HTTP/1.1" to "GET /x".
func requestLine(req string) string {
	fields := strings.Fields(req)
	if len(fields) >= 3 && strings.HasPrefix(fields[len(fields)-1], "HTTP/") {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// strField returns the first non-empty value among keys.
func strField(data map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil {
			s := fmt.Sprintf("%v", v)
			if s != "" {
				return s, true
			}
		}
	}
	return "", false
}
