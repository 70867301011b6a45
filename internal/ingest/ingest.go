// Package ingest runs the watch loop: each settled change to the target file
// drains the lines appended since the last drain, scores them and appends the
// High ones to the flagged-log store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/atikulmunna/logsieve/internal/fileops"
	"github.com/atikulmunna/logsieve/internal/model"
	"github.com/atikulmunna/logsieve/internal/scorer"
	"github.com/atikulmunna/logsieve/internal/watcher"
)

const defaultOutputBuffer = 512

// State is the phase of the ingestion loop.
type State int

const (
	Idle State = iota
	Draining
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Draining:
		return "draining"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures an Ingestor.
type Options struct {
	Target       string      // file to watch, relative to the FS root
	FlaggedPath  string      // flagged-log store; empty disables it
	Workers      int         // scoring goroutines per drain; <= 0 uses GOMAXPROCS
	Checkpoint   *Checkpoint // optional
	Logger       *log.Logger
	OutputBuffer int // capacity of the Verdicts channel
}

// Batch describes one drain: lines (From, To] by 1-based number.
type Batch struct {
	From     int
	To       int
	Verdicts []model.Verdict
	Flagged  int
}

// Stats are running counters for the loop.
type Stats struct {
	Batches int64 `json:"batches"`
	Scored  int64 `json:"scored"`
	Flagged int64 `json:"flagged"`
	Dropped int64 `json:"dropped"`
	Errors  int64 `json:"errors"`
}

// Ingestor owns the watch state for one target. Only the goroutine calling
// Run or Drain mutates it; the accessors are safe from any goroutine.
type Ingestor struct {
	fs     *fileops.FS
	sc     *scorer.Scorer
	opts   Options
	logger *log.Logger

	mu     sync.RWMutex
	state  State
	offset int
	lines  []string
	stats  Stats

	resume      bool // checkpointed offset is behind the file
	flaggedBase int  // flagged count carried over from the checkpoint
	closed      bool
	out         chan model.Verdict
}

// New loads the current content of the target and positions the offset at
// its end, or at the checkpointed offset when one is available and within
// [0, end]. A missing target counts as empty. A trailing fragment without a
// newline is not counted as loaded; it is scored by the first drain after
// its newline arrives.
func New(fsys *fileops.FS, sc *scorer.Scorer, opts Options) (*Ingestor, error) {
	if opts.Target == "" {
		return nil, errors.New("ingest: empty target")
	}
	if sc == nil {
		return nil, errors.New("ingest: nil scorer")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}
	if opts.OutputBuffer <= 0 {
		opts.OutputBuffer = defaultOutputBuffer
	}

	lines, total, err := fsys.ReadLinesFrom(opts.Target, 0)
	if err != nil && !fileops.IsNotExist(err) {
		return nil, fmt.Errorf("read target %s: %w", opts.Target, err)
	}

	in := &Ingestor{
		fs:     fsys,
		sc:     sc,
		opts:   opts,
		logger: opts.Logger,
		state:  Idle,
		offset: total,
		lines:  lines,
		out:    make(chan model.Verdict, opts.OutputBuffer),
	}

	if ck := opts.Checkpoint; ck != nil {
		if st, ok := ck.Get(opts.Target); ok {
			in.flaggedBase = st.Flagged
			switch {
			case st.Offset < 0:
				in.logger.Printf("checkpoint offset %d for %s is negative; starting at end", st.Offset, opts.Target)
			case st.Offset > total:
				in.logger.Printf("checkpoint offset %d is past the end of %s (%d lines); starting at end", st.Offset, opts.Target, total)
			case st.Offset < total:
				in.offset = st.Offset
				in.lines = lines[:st.Offset]
				in.resume = true
				in.logger.Printf("resuming %s at line %d of %d", opts.Target, st.Offset, total)
			}
		}
	}
	return in, nil
}

// Verdicts returns the channel every scored line is published on. It is
// closed when Run returns. Verdicts are dropped, and counted, if the channel
// is full.
func (in *Ingestor) Verdicts() <-chan model.Verdict {
	return in.out
}

// Offset returns the number of target lines consumed so far.
func (in *Ingestor) Offset() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.offset
}

// State returns the current phase.
func (in *Ingestor) State() State {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.state
}

// Lines returns a copy of the consumed lines.
func (in *Ingestor) Lines() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]string, len(in.lines))
	copy(out, in.lines)
	return out
}

// Stats returns a snapshot of the counters.
func (in *Ingestor) Stats() Stats {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.stats
}

// Run waits for change events and drains once per event. Drain errors are
// logged and the loop stays idle. It returns ctx.Err() on cancellation and
// nil when events is closed.
func (in *Ingestor) Run(ctx context.Context, events <-chan watcher.Event) error {
	defer in.close()

	if in.resume {
		in.resume = false
		if err := in.drainAndLog(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if err := in.drainAndLog(ctx); err != nil {
				return err
			}
		}
	}
}

// drainAndLog runs one drain and only reports cancellation.
func (in *Ingestor) drainAndLog(ctx context.Context) error {
	b, err := in.Drain(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		in.logger.Printf("drain failed: %v", err)
		return nil
	}
	if b.To > b.From {
		in.logger.Printf("scored lines %d-%d of %s: %d flagged", b.From+1, b.To, in.opts.Target, b.Flagged)
	}
	return nil
}

// Drain reads the target, scores every newline-terminated line past the
// offset exactly once and advances the offset to the new line count. A
// target that shrank is logged and left alone; the offset never decreases.
//
// If appending to the flagged store fails the offset stays advanced and the
// error is returned alongside the batch.
func (in *Ingestor) Drain(ctx context.Context) (Batch, error) {
	in.setState(Draining)
	defer in.setState(Idle)

	from := in.Offset()
	batch := Batch{From: from, To: from}

	fresh, total, err := in.fs.ReadLinesFrom(in.opts.Target, from)
	if err != nil {
		in.countError()
		return batch, fmt.Errorf("read target %s: %w", in.opts.Target, err)
	}
	switch {
	case total == from:
		return batch, nil
	case total < from:
		in.logger.Printf("%s shrank from %d to %d lines; waiting for it to grow past the offset", in.opts.Target, from, total)
		return batch, nil
	}

	results, err := in.sc.ScoreBatch(ctx, fresh, in.opts.Workers)
	if err != nil {
		in.countError()
		return batch, err
	}

	now := time.Now()
	verdicts := make([]model.Verdict, len(results))
	var flagged []string
	for i, r := range results {
		verdicts[i] = model.Verdict{
			Timestamp:   now,
			Source:      in.opts.Target,
			Line:        from + i + 1,
			Raw:         fresh[i],
			Criticality: r.Criticality,
			Score:       r.Score,
			AvgDistance: r.AvgDistance,
			Normalized:  r.Normalized,
			AvgOverlap:  r.AvgOverlap,
			Tokens:      r.Tokens,
		}
		if r.Criticality == model.High {
			flagged = append(flagged, fresh[i])
		}
	}

	in.mu.Lock()
	in.lines = append(in.lines, fresh...)
	in.offset = total
	in.stats.Batches++
	in.stats.Scored += int64(len(fresh))
	in.stats.Flagged += int64(len(flagged))
	in.mu.Unlock()

	batch.To = total
	batch.Verdicts = verdicts
	batch.Flagged = len(flagged)

	var storeErr error
	if in.opts.FlaggedPath != "" {
		if err := in.fs.AppendLines(in.opts.FlaggedPath, flagged); err != nil {
			in.countError()
			storeErr = fmt.Errorf("append flagged lines to %s: %w", in.opts.FlaggedPath, err)
		}
	}

	in.publish(verdicts)
	in.saveCheckpoint()
	return batch, storeErr
}

func (in *Ingestor) publish(verdicts []model.Verdict) {
	if in.closed {
		return
	}
	for _, v := range verdicts {
		select {
		case in.out <- v:
		default:
			in.mu.Lock()
			in.stats.Dropped++
			in.mu.Unlock()
		}
	}
}

// saveCheckpoint persists the current offset.
func (in *Ingestor) saveCheckpoint() {
	ck := in.opts.Checkpoint
	if ck == nil {
		return
	}
	ck.Set(in.opts.Target, WatchState{
		Offset:  in.Offset(),
		Flagged: in.flaggedBase + int(in.Stats().Flagged),
		Updated: time.Now(),
	})
	if err := ck.Save(); err != nil {
		in.logger.Printf("checkpoint save failed: %v", err)
	}
}

func (in *Ingestor) setState(s State) {
	in.mu.Lock()
	in.state = s
	in.mu.Unlock()
}

func (in *Ingestor) countError() {
	in.mu.Lock()
	in.stats.Errors++
	in.mu.Unlock()
}

func (in *Ingestor) close() {
	if !in.closed {
		in.closed = true
		close(in.out)
	}
}
