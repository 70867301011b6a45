package hub

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/atikulmunna/logsieve/internal/model"
)

var quiet = log.New(io.Discard, "", 0)

func TestHubBroadcast(t *testing.T) {
	input := make(chan model.Verdict, 10)
	h := New(input, quiet)

	sub1 := h.Subscribe(model.Low)
	sub2 := h.Subscribe(model.Low)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Start(ctx)

	input <- model.Verdict{Raw: "GET /etc/passwd", Source: "access.log", Criticality: model.High}

	// Both subscribers should receive it.
	for i, sub := range []<-chan model.Verdict{sub1, sub2} {
		select {
		case v := <-sub:
			if v.Criticality != model.High {
				t.Errorf("sub%d: expected HIGH, got %s", i+1, v.Criticality)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("sub%d: timed out", i+1)
		}
	}
}

func TestHubMinimumCriticality(t *testing.T) {
	input := make(chan model.Verdict, 10)
	h := New(input, quiet)

	all := h.Subscribe(model.Low)
	high := h.Subscribe(model.High)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	input <- model.Verdict{Line: 1, Criticality: model.Low}
	input <- model.Verdict{Line: 2, Criticality: model.Medium}
	input <- model.Verdict{Line: 3, Criticality: model.High}
	close(input)

	var gotAll, gotHigh []int
	for v := range all {
		gotAll = append(gotAll, v.Line)
	}
	for v := range high {
		gotHigh = append(gotHigh, v.Line)
	}

	if len(gotAll) != 3 {
		t.Errorf("expected 3 verdicts for Low subscriber, got %v", gotAll)
	}
	if len(gotHigh) != 1 || gotHigh[0] != 3 {
		t.Errorf("expected only line 3 for High subscriber, got %v", gotHigh)
	}
	if h.Published() != 3 {
		t.Errorf("expected 3 published, got %d", h.Published())
	}
}

func TestHubSlowConsumer(t *testing.T) {
	input := make(chan model.Verdict, 10)
	h := New(input, quiet)

	// Subscribe but never read.
	_ = h.Subscribe(model.Low)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Start(ctx)

	// Fill beyond the subscriber buffer.
	for i := 0; i < subscriberBuffer+100; i++ {
		input <- model.Verdict{Raw: "line", Source: "access.log"}
	}

	// Give hub time to process.
	time.Sleep(500 * time.Millisecond)

	if h.Dropped() == 0 {
		t.Error("expected dropped verdicts for slow consumer, got 0")
	}
}
