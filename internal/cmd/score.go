package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atikulmunna/logsieve/internal/aggregator"
	"github.com/atikulmunna/logsieve/internal/engine"
	"github.com/atikulmunna/logsieve/internal/fileops"
	"github.com/atikulmunna/logsieve/internal/model"
	"github.com/atikulmunna/logsieve/internal/output"
)

var scoreCmd = &cobra.Command{
	Use:   "score [lines...]",
	Short: "Score log lines once and print their criticality",
	Long: `Score the given lines, or every line of --file, against the dictionary
and print one verdict per line followed by a summary.

Examples:
  logsieve score "GET /api/user?id=5"
  logsieve score --file access.log --min-level high -o json`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().String("file", "", "score every line of this file (relative paths resolve against --workdir)")
	scoreCmd.Flags().Bool("flag", false, "append HIGH lines to the flagged-log file")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	flag, _ := cmd.Flags().GetBool("flag")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fsys, err := fileops.NewOS(cfg.Workdir)
	if err != nil {
		return err
	}
	source, lines, err := scoreInput(fsys, file, args)
	if err != nil {
		return err
	}
	eng, err := engine.Prepare(ctx, fsys, cfg.engineOptions(false))
	if err != nil {
		return err
	}

	results, err := eng.Scorer.ScoreBatch(ctx, lines, cfg.Workers)
	if err != nil {
		return err
	}

	renderer, err := output.New(cfg.Output, cmd.OutOrStdout(), cfg.Verbose)
	if err != nil {
		return err
	}

	now := time.Now()
	verdicts := make(chan model.Verdict, len(results))
	var flagged []string
	for i, r := range results {
		v := model.Verdict{
			Timestamp:   now,
			Source:      source,
			Line:        i + 1,
			Raw:         lines[i],
			Criticality: r.Criticality,
			Score:       r.Score,
			AvgDistance: r.AvgDistance,
			Normalized:  r.Normalized,
			AvgOverlap:  r.AvgOverlap,
			Tokens:      r.Tokens,
		}
		verdicts <- v
		if r.Criticality == model.High {
			flagged = append(flagged, v.Raw)
		}
		if v.Criticality >= cfg.MinLevel {
			if err := renderer.Render(v); err != nil {
				return err
			}
		}
	}
	close(verdicts)

	if flag {
		if err := fsys.AppendLines(cfg.FlaggedPath, flagged); err != nil {
			return fmt.Errorf("append flagged lines: %w", err)
		}
	}

	agg := aggregator.New(verdicts, nil, func() int { return len(lines) })
	agg.Start(ctx)
	return renderer.Summary(agg.Snapshot())
}

// scoreInput returns the lines to score: every line of file when set,
// otherwise args. Relative file names resolve against the working directory.
func scoreInput(fsys *fileops.FS, file string, args []string) (string, []string, error) {
	lines := args
	source := "args"
	if file != "" {
		l, err := fsys.ReadLines(file)
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", file, err)
		}
		source, lines = file, l
	}
	if len(lines) == 0 {
		return "", nil, errors.New("nothing to score: pass lines as arguments or use --file")
	}
	return source, lines, nil
}
