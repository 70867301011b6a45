package hub

import (
	"context"
	"log"
	"sync"

	"github.com/atikulmunna/logsieve/internal/model"
)

const subscriberBuffer = 1024

type subscriber struct {
	ch  chan model.Verdict
	min model.Criticality
}

// Hub receives verdicts and broadcasts them to all subscribers.
type Hub struct {
	input       <-chan model.Verdict
	logger      *log.Logger
	mu          sync.RWMutex
	subscribers []subscriber
	published   int64
	dropped     int64
}

// New creates a Hub that reads verdicts from input.
func New(input <-chan model.Verdict, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(log.Writer(), "[hub] ", log.LstdFlags)
	}
	return &Hub{
		input:  input,
		logger: logger,
	}
}

// Subscribe returns a buffered channel that receives every verdict at or
// above min. Each subscriber gets its own copy.
func (h *Hub) Subscribe(min model.Criticality) <-chan model.Verdict {
	ch := make(chan model.Verdict, subscriberBuffer)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, subscriber{ch: ch, min: min})
	h.mu.Unlock()
	return ch
}

// Published returns the number of verdicts read from the input.
func (h *Hub) Published() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published
}

// Dropped returns the total number of verdicts dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start begins broadcasting. Blocks until the context is cancelled or the
// input channel is closed.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-h.input:
			if !ok {
				return
			}
			h.broadcast(v)
		}
	}
}

// broadcast sends a verdict to all interested subscribers.
// If a subscriber's channel is full, the verdict is dropped for that subscriber.
func (h *Hub) broadcast(v model.Verdict) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.published++
	for _, s := range h.subscribers {
		if v.Criticality < s.min {
			continue
		}
		select {
		case s.ch <- v:
		default:
			h.dropped++
			h.logger.Printf("dropped verdict for slow consumer (total dropped: %d)", h.dropped)
		}
	}
}

// closeAll closes all subscriber channels.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subscribers {
		close(s.ch)
	}
	h.subscribers = nil
}
