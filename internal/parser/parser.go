package parser

import (
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Splitting
// ---------------------------------------------------------------------------

// StripLeadingField drops the first space-separated field (the request
// method) and rejoins the rest with single spaces. A line without a space
// yields the empty string.
func StripLeadingField(line string) string {
	fields := strings.Split(line, " ")
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

// SplitOnDelimiters scans line left to right. At each position the delimiters
// are tried in order and the first one that matches closes the current token,
// even when it is empty. The trailing token is emitted only if non-empty.
// Empty delimiters are ignored.
func SplitOnDelimiters(line string, delimiters []string) []string {
	var tokens []string
	var cur strings.Builder

	for i := 0; i < len(line); {
		matched := false
		for _, d := range delimiters {
			if d != "" && strings.HasPrefix(line[i:], d) {
				tokens = append(tokens, cur.String())
				cur.Reset()
				i += len(d)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		_, size := utf8.DecodeRuneInString(line[i:])
		cur.WriteString(line[i : i+size])
		i += size
	}

	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// ---------------------------------------------------------------------------
// Tokenizer
// ---------------------------------------------------------------------------

// URLMode controls how percent-encoded sequences are treated before splitting.
type URLMode int

const (
	// URLKeep leaves escapes untouched.
	URLKeep URLMode = iota
	// URLDecode decodes every valid %XX escape; malformed ones are kept as-is.
	URLDecode
	// URLRemove drops every %XX escape.
	URLRemove
)

// ParseURLMode maps "keep", "decode" or "remove" to a URLMode.
func ParseURLMode(s string) (URLMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep", "raw":
		return URLKeep, true
	case "decode":
		return URLDecode, true
	case "remove":
		return URLRemove, true
	default:
		return URLKeep, false
	}
}

// Tokenizer turns a raw log line into dictionary tokens.
// The zero Extractor behaves like RawExtractor.
type Tokenizer struct {
	Delimiters []string
	Extractor  Extractor
	URLMode    URLMode
}

// NewTokenizer returns a Tokenizer that splits raw lines on delimiters.
func NewTokenizer(delimiters []string) *Tokenizer {
	return &Tokenizer{Delimiters: delimiters, Extractor: RawExtractor{}}
}

// Request extracts the request from raw, strips the method and applies the URL mode.
func (t *Tokenizer) Request(raw string) string {
	req := raw
	if t.Extractor != nil {
		req = t.Extractor.Extract(raw)
	}
	req = StripLeadingField(req)

	switch t.URLMode {
	case URLDecode:
		req = decodeEscapes(req)
	case URLRemove:
		req = removeEscapes(req)
	}
	return req
}

// Split returns every token of raw, including empty ones.
func (t *Tokenizer) Split(raw string) []string {
	return SplitOnDelimiters(t.Request(raw), t.Delimiters)
}

// Tokens returns the non-empty tokens of raw in order.
func (t *Tokenizer) Tokens(raw string) []string {
	all := t.Split(raw)
	out := all[:0]
	for _, tok := range all {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// removeEscapes drops "%XX" sequences where XX are hex digits.
func removeEscapes(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// decodeEscapes replaces each "%XX" sequence with the byte it encodes.
func decodeEscapes(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
