package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *flushRecorder) flush(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, ids)
}

func (r *flushRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func TestReceiptBatcherCoalescesBurst(t *testing.T) {
	rec := &flushRecorder{}
	b := NewReadReceiptBatcher(30*time.Millisecond, rec.flush)
	defer b.Stop()

	b.Add("m1")
	b.Add("m2", "m3")

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"m1", "m2", "m3"}, rec.snapshot()[0])
}

func TestReceiptBatcherFlushesPerWindow(t *testing.T) {
	rec := &flushRecorder{}
	b := NewReadReceiptBatcher(20*time.Millisecond, rec.flush)
	defer b.Stop()

	b.Add("m1")
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	b.Add("m2")
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)

	batches := rec.snapshot()
	assert.Equal(t, []string{"m1"}, batches[0])
	assert.Equal(t, []string{"m2"}, batches[1])
}

func TestReceiptBatcherStopDiscardsPending(t *testing.T) {
	rec := &flushRecorder{}
	b := NewReadReceiptBatcher(20*time.Millisecond, rec.flush)

	b.Add("m1")
	b.Stop()
	b.Add("m2")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
