// Package dictionary builds and persists the reference token set extracted
// from the malicious-sample corpus.
package dictionary

import (
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/atikulmunna/logsieve/internal/fileops"
	"github.com/atikulmunna/logsieve/internal/parser"
)

// Dictionary is a set of unique, non-empty tokens. It keeps first-seen order
// so the on-disk form is stable. Once built it is only read.
type Dictionary struct {
	tokens []string
	index  map[string]struct{}
	maxLen int
}

// New returns a Dictionary holding the non-empty, de-duplicated tokens.
func New(tokens ...string) *Dictionary {
	d := &Dictionary{index: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		d.Add(t)
	}
	return d
}

// Add inserts tok and reports whether it was new. Empty tokens are rejected.
func (d *Dictionary) Add(tok string) bool {
	if tok == "" {
		return false
	}
	if _, ok := d.index[tok]; ok {
		return false
	}
	d.index[tok] = struct{}{}
	d.tokens = append(d.tokens, tok)
	if n := utf8.RuneCountInString(tok); n > d.maxLen {
		d.maxLen = n
	}
	return true
}

// Contains reports exact membership.
func (d *Dictionary) Contains(tok string) bool {
	_, ok := d.index[tok]
	return ok
}

// Tokens returns a copy of the tokens in first-seen order.
func (d *Dictionary) Tokens() []string {
	out := make([]string, len(d.tokens))
	copy(out, d.tokens)
	return out
}

// Each calls fn for every token without copying.
func (d *Dictionary) Each(fn func(tok string)) {
	for _, t := range d.tokens {
		fn(t)
	}
}

func (d *Dictionary) Len() int { return len(d.tokens) }

// MaxTokenLen is the length in code points of the longest token, 0 when empty.
func (d *Dictionary) MaxTokenLen() int { return d.maxLen }

// Build extracts a dictionary from corpus lines: each line loses its request
// method, is split on delimiters, and every non-empty token is added once.
func Build(corpus []string, delimiters []string) *Dictionary {
	return BuildWith(corpus, parser.NewTokenizer(delimiters))
}

// BuildWith is Build with a configured tokenizer.
func BuildWith(corpus []string, tok *parser.Tokenizer) *Dictionary {
	d := New()
	for _, line := range corpus {
		for _, t := range tok.Tokens(line) {
			d.Add(t)
		}
	}
	return d
}

// Load reads a dictionary file, one token per non-empty line.
func Load(fsys *fileops.FS, path string) (*Dictionary, error) {
	lines, err := fsys.ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("load dictionary %s: %w", path, err)
	}
	return New(lines...), nil
}

// Save writes the dictionary one token per line, replacing any existing file.
func Save(fsys *fileops.FS, path string, d *Dictionary) error {
	if err := fsys.WriteLines(path, d.tokens); err != nil {
		return fmt.Errorf("save dictionary %s: %w", path, err)
	}
	return nil
}

// LoadOrBuild rebuilds the dictionary from corpus when forceRebuild is set or
// no file exists at path, persisting the result; otherwise it loads path
// verbatim. The boolean reports whether a rebuild happened.
func LoadOrBuild(fsys *fileops.FS, corpus []string, tok *parser.Tokenizer, forceRebuild bool, path string) (*Dictionary, bool, error) {
	if !forceRebuild && fsys.Exists(path) {
		log.Printf("loading existing dictionary from %s", path)
		d, err := Load(fsys, path)
		if err != nil {
			return nil, false, err
		}
		return d, false, nil
	}

	log.Printf("building dictionary from %d corpus lines", len(corpus))
	d := BuildWith(corpus, tok)
	if err := Save(fsys, path, d); err != nil {
		return nil, false, err
	}
	return d, true, nil
}
