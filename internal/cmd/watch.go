package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atikulmunna/logsieve/internal/aggregator"
	"github.com/atikulmunna/logsieve/internal/engine"
	"github.com/atikulmunna/logsieve/internal/fileops"
	"github.com/atikulmunna/logsieve/internal/hub"
	"github.com/atikulmunna/logsieve/internal/ingest"
	"github.com/atikulmunna/logsieve/internal/model"
	"github.com/atikulmunna/logsieve/internal/output"
	"github.com/atikulmunna/logsieve/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [target]",
	Short: "Watch the target log file and score new lines as they arrive",
	Long: `Watch the target file (default from the target config key) and score
every line appended to it. After each burst of writes settles, the new lines
are scored, HIGH lines are appended to the flagged-log file and verdicts are
streamed to the terminal.

Examples:
  logsieve watch
  logsieve watch access.log --min-level medium
  logsieve watch access.log --debounce 500ms --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "quiet period before a burst of writes is scored")
	watchCmd.Flags().String("flagged", "", "flagged-log file (default from flagged.path)")
	watchCmd.Flags().String("state", "", "checkpoint file (default from state.path)")
	bind(watchCmd.Flags().Lookup("debounce"), "watch.debounce")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if len(args) == 1 {
		v.Set("target", args[0])
	}
	if f, _ := cmd.Flags().GetString("flagged"); f != "" {
		v.Set("flagged.path", f)
	}
	if s, _ := cmd.Flags().GetString("state"); s != "" {
		v.Set("state.path", s)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	// --- Set up context with graceful shutdown ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Prepare dictionary and scorer ---
	fsys, err := fileops.NewOS(cfg.Workdir)
	if err != nil {
		return err
	}
	eng, err := engine.Prepare(ctx, fsys, cfg.engineOptions(false))
	if err != nil {
		return err
	}

	// --- Initialize checkpoint ---
	var ckpt *ingest.Checkpoint
	if cfg.StatePath != "" {
		ckpt, err = ingest.NewCheckpoint(fsys, cfg.StatePath)
		if err != nil {
			newLogger("watch").Printf("ignoring checkpoint: %v", err)
			ckpt = nil
		}
	}

	// --- Initialize ingestor and watcher ---
	in, err := ingest.New(fsys, eng.Scorer, ingest.Options{
		Target:      cfg.Target,
		FlaggedPath: cfg.FlaggedPath,
		Workers:     cfg.Workers,
		Checkpoint:  ckpt,
		Logger:      newLogger("ingest"),
	})
	if err != nil {
		return err
	}

	w, err := watcher.New(fsys.Path(cfg.Target), cfg.Debounce, newLogger("watcher"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	renderer, err := output.New(cfg.Output, cmd.OutOrStdout(), cfg.Verbose)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "logsieve watching %s from line %d (%d dictionary tokens)\n",
		w.Path(), in.Offset(), eng.Dictionary.Len())

	// --- Start pipeline ---
	h := hub.New(in.Verdicts(), newLogger("hub"))
	display := h.Subscribe(cfg.MinLevel)
	agg := aggregator.New(h.Subscribe(model.Low), h.Dropped, in.Offset)

	go w.Start(ctx)
	go h.Start(ctx)
	go agg.Start(ctx)

	runErr := make(chan error, 1)
	go func() { runErr <- in.Run(ctx, w.Events()) }()

	// --- Render output ---
	for v := range display {
		if err := renderer.Render(v); err != nil {
			newLogger("output").Printf("render error: %v", err)
		}
	}

	err = <-runErr
	fmt.Fprintln(os.Stderr, "\nlogsieve shutting down...")
	if serr := renderer.Summary(agg.Snapshot()); serr != nil {
		return serr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
