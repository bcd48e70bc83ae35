package store

import (
	"sync"
	"time"
)

// DefaultReceiptWindow is the debounce window before queued read receipts
// are flushed in one batch.
const DefaultReceiptWindow = 500 * time.Millisecond

// ReadReceiptBatcher coalesces read acknowledgments so a burst of inbound
// messages produces one read_receipt command instead of one per message.
type ReadReceiptBatcher struct {
	mu      sync.Mutex
	window  time.Duration
	flush   func(messageIDs []string)
	pending []string
	timer   *time.Timer
	stopped bool
}

// NewReadReceiptBatcher builds a batcher that calls flush with everything
// queued during a window. A non-positive window uses the default.
func NewReadReceiptBatcher(window time.Duration, flush func([]string)) *ReadReceiptBatcher {
	if window <= 0 {
		window = DefaultReceiptWindow
	}
	return &ReadReceiptBatcher{window: window, flush: flush}
}

// Add queues message ids for acknowledgment and arms the flush timer if one
// is not already pending.
func (b *ReadReceiptBatcher) Add(messageIDs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || len(messageIDs) == 0 {
		return
	}
	b.pending = append(b.pending, messageIDs...)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.flushNow)
	}
}

func (b *ReadReceiptBatcher) flushNow() {
	b.mu.Lock()
	ids := b.pending
	b.pending = nil
	b.timer = nil
	stopped := b.stopped
	b.mu.Unlock()

	if stopped || len(ids) == 0 {
		return
	}
	b.flush(ids)
}

// Stop cancels any pending flush and discards queued ids. A flush already
// in flight is harmless: the underlying send is a no-op once disconnected.
func (b *ReadReceiptBatcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
