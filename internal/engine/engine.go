// Package engine assembles the detection pipeline at startup: it loads the
// delimiter set and the reference corpus, checks the dictionary against the
// hash store, rebuilds it when stale, and returns a ready Scorer.
package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/atikulmunna/logsieve/internal/dictionary"
	"github.com/atikulmunna/logsieve/internal/fileops"
	"github.com/atikulmunna/logsieve/internal/parser"
	"github.com/atikulmunna/logsieve/internal/scorer"
	"github.com/atikulmunna/logsieve/internal/staleness"
)

// Options controls how the pipeline is assembled.
type Options struct {
	CorpusPrefix    string // e.g. "malicious_logs"
	DelimiterPrefix string // e.g. "special_strings"
	DictionaryPath  string // e.g. "dictionary.txt"
	HashDir         string // e.g. "hashes"
	ForceRebuild    bool

	Format  string // raw, clf, json, auto
	URLMode parser.URLMode
	Scoring scorer.Config

	Logger *log.Logger
}

// DefaultOptions returns the conventional file names in the working directory.
func DefaultOptions() Options {
	return Options{
		CorpusPrefix:    "malicious_logs",
		DelimiterPrefix: "special_strings",
		DictionaryPath:  "dictionary.txt",
		HashDir:         staleness.DefaultDir,
		Format:          "raw",
		Scoring:         scorer.DefaultConfig(),
	}
}

// Engine is the assembled pipeline.
type Engine struct {
	Delimiters  []string
	CorpusFiles []string
	CorpusLines int
	Dictionary  *dictionary.Dictionary
	Tokenizer   *parser.Tokenizer
	Scorer      *scorer.Scorer

	Stale   bool // corpus hashes did not match the store
	Rebuilt bool // dictionary was rebuilt and hashes saved
}

// Prepare loads delimiters and corpus, brings the dictionary up to date and
// builds the scorer. Any I/O failure on the corpus is fatal.
func Prepare(ctx context.Context, fsys *fileops.FS, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[engine] ", log.LstdFlags)
	}

	delims, err := LoadDelimiters(fsys, opts.DelimiterPrefix)
	if err != nil {
		return nil, err
	}
	if len(delims) == 0 {
		logger.Printf("warning: no delimiters found with prefix %q; lines will not be split", opts.DelimiterPrefix)
	}

	corpusFiles, corpus, err := LoadCorpus(fsys, opts.CorpusPrefix)
	if err != nil {
		return nil, err
	}
	logger.Printf("loaded %d corpus line(s) from %d file(s), %d delimiter(s)", len(corpus), len(corpusFiles), len(delims))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extractor, err := parser.NewExtractor(opts.Format)
	if err != nil {
		return nil, err
	}
	tok := &parser.Tokenizer{Delimiters: delims, Extractor: extractor, URLMode: opts.URLMode}

	cache := staleness.New(fsys, opts.HashDir, logger)
	stale, err := cache.IsStale(corpusFiles)
	if err != nil {
		return nil, err
	}

	dict, rebuilt, err := dictionary.LoadOrBuild(fsys, corpus, tok, stale || opts.ForceRebuild, opts.DictionaryPath)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		if err := cache.SaveHashes(corpusFiles); err != nil {
			return nil, err
		}
	}
	logger.Printf("dictionary ready: %d token(s), stale=%v rebuilt=%v", dict.Len(), stale, rebuilt)

	sc, err := scorer.New(dict, tok, opts.Scoring)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Delimiters:  delims,
		CorpusFiles: corpusFiles,
		CorpusLines: len(corpus),
		Dictionary:  dict,
		Tokenizer:   tok,
		Scorer:      sc,
		Stale:       stale,
		Rebuilt:     rebuilt,
	}, nil
}

// LoadDelimiters reads every file starting with prefix, in name order, one
// delimiter literal per line. Empty lines are skipped; spaces are kept.
func LoadDelimiters(fsys *fileops.FS, prefix string) ([]string, error) {
	names, err := fsys.ListFilenames(prefix)
	if err != nil {
		return nil, err
	}
	var delims []string
	for _, name := range names {
		lines, err := fsys.ReadLines(name)
		if err != nil {
			return nil, fmt.Errorf("read delimiters %s: %w", name, err)
		}
		for _, l := range lines {
			if l != "" {
				delims = append(delims, l)
			}
		}
	}
	return delims, nil
}

// LoadCorpus reads every file starting with prefix, in name order, and returns
// the file names and their concatenated lines.
func LoadCorpus(fsys *fileops.FS, prefix string) ([]string, []string, error) {
	names, err := fsys.ListFilenames(prefix)
	if err != nil {
		return nil, nil, err
	}
	var lines []string
	for _, name := range names {
		l, err := fsys.ReadLines(name)
		if err != nil {
			return nil, nil, fmt.Errorf("read corpus %s: %w", name, err)
		}
		lines = append(lines, l...)
	}
	return names, lines, nil
}
