package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atikulmunna/logsieve/internal/engine"
	"github.com/atikulmunna/logsieve/internal/model"
	"github.com/atikulmunna/logsieve/internal/parser"
	"github.com/atikulmunna/logsieve/internal/scorer"
	"github.com/atikulmunna/logsieve/internal/staleness"
	"github.com/atikulmunna/logsieve/internal/watcher"
)

// Config is the resolved configuration shared by all subcommands.
type Config struct {
	Workdir         string
	CorpusPrefix    string
	DelimiterPrefix string
	Target          string
	DictionaryPath  string
	HashDir         string
	FlaggedPath     string
	StatePath       string

	Scoring  scorer.Config
	Format   string
	URLMode  parser.URLMode
	Debounce time.Duration
	Workers  int

	Output   string
	MinLevel model.Criticality
	Verbose  bool
}

func setDefaults(v *viper.Viper) {
	def := scorer.DefaultConfig()

	v.SetDefault("workdir", ".")
	v.SetDefault("corpus.prefix", "malicious_logs")
	v.SetDefault("delimiters.prefix", "special_strings")
	v.SetDefault("target", "target_file.txt")
	v.SetDefault("dictionary.path", "dictionary.txt")
	v.SetDefault("hashes.dir", staleness.DefaultDir)
	v.SetDefault("flagged.path", "flagged_logs.txt")
	v.SetDefault("state.path", ".logsieve-state.json")
	v.SetDefault("scoring.distance_weight", def.DistanceWeight)
	v.SetDefault("scoring.overlap_weight", def.OverlapWeight)
	v.SetDefault("scoring.medium_threshold", def.MediumThreshold)
	v.SetDefault("scoring.high_threshold", def.HighThreshold)
	v.SetDefault("tokenizer.format", "raw")
	v.SetDefault("tokenizer.url", "keep")
	v.SetDefault("watch.debounce", watcher.DefaultDebounce)
	v.SetDefault("workers", 0)
	v.SetDefault("output", "text")
	v.SetDefault("min_level", "low")
	v.SetDefault("verbose", false)
}

// bind ties a flag to a viper key; flags are registered in init so a
// failure here is a programming error.
func bind(f *pflag.Flag, key string) {
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

func loadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Workdir:         v.GetString("workdir"),
		CorpusPrefix:    v.GetString("corpus.prefix"),
		DelimiterPrefix: v.GetString("delimiters.prefix"),
		Target:          v.GetString("target"),
		DictionaryPath:  v.GetString("dictionary.path"),
		HashDir:         v.GetString("hashes.dir"),
		FlaggedPath:     v.GetString("flagged.path"),
		StatePath:       v.GetString("state.path"),
		Scoring: scorer.Config{
			DistanceWeight:  v.GetFloat64("scoring.distance_weight"),
			OverlapWeight:   v.GetFloat64("scoring.overlap_weight"),
			MediumThreshold: v.GetFloat64("scoring.medium_threshold"),
			HighThreshold:   v.GetFloat64("scoring.high_threshold"),
		},
		Format:   v.GetString("tokenizer.format"),
		Debounce: v.GetDuration("watch.debounce"),
		Workers:  v.GetInt("workers"),
		Output:   v.GetString("output"),
		Verbose:  v.GetBool("verbose"),
	}

	mode, ok := parser.ParseURLMode(v.GetString("tokenizer.url"))
	if !ok {
		return cfg, fmt.Errorf("invalid tokenizer.url %q (want keep, decode or remove)", v.GetString("tokenizer.url"))
	}
	cfg.URLMode = mode

	lvl, err := model.ParseCriticality(v.GetString("min_level"))
	if err != nil {
		return cfg, fmt.Errorf("invalid min_level: %w", err)
	}
	cfg.MinLevel = lvl

	if err := cfg.Scoring.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) engineOptions(force bool) engine.Options {
	return engine.Options{
		CorpusPrefix:    c.CorpusPrefix,
		DelimiterPrefix: c.DelimiterPrefix,
		DictionaryPath:  c.DictionaryPath,
		HashDir:         c.HashDir,
		ForceRebuild:    force,
		Format:          c.Format,
		URLMode:         c.URLMode,
		Scoring:         c.Scoring,
		Logger:          newLogger("engine"),
	}
}

func newLogger(component string) *log.Logger {
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags)
}
