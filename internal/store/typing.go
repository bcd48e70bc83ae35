package store

import (
	"sync"
	"time"
)

// DefaultTypingIdle is how long after the last keystroke the typing-stop
// signal is sent.
const DefaultTypingIdle = time.Second

// TypingNotifier turns per-keystroke input events into at most one
// typing-start per burst and one typing-stop after the idle window, so the
// connection is not flooded with per-keystroke commands.
type TypingNotifier struct {
	mu      sync.Mutex
	idle    time.Duration
	send    func(isTyping bool)
	typing  bool
	timer   *time.Timer
	stopped bool
}

// NewTypingNotifier builds a notifier that calls send with the typing flag.
// A non-positive idle window uses the default.
func NewTypingNotifier(idle time.Duration, send func(bool)) *TypingNotifier {
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	return &TypingNotifier{idle: idle, send: send}
}

// Keystroke records local input. The first keystroke of a burst emits
// typing=true immediately; every keystroke re-arms the idle timer.
func (t *TypingNotifier) Keystroke() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	first := !t.typing
	t.typing = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idle, t.idleExpired)
	t.mu.Unlock()

	if first {
		t.send(true)
	}
}

func (t *TypingNotifier) idleExpired() {
	t.mu.Lock()
	if t.stopped || !t.typing {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.timer = nil
	t.mu.Unlock()
	t.send(false)
}

// Stop cancels the idle timer and emits a final typing=false if a burst was
// still active.
func (t *TypingNotifier) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	wasTyping := t.typing
	t.typing = false
	t.mu.Unlock()

	if wasTyping {
		t.send(false)
	}
}
