package devserver

import (
	"sync"

	"parcel-chat-client/internal/protocol"
)

// historyLog is the in-memory per-conversation message history backing the
// dev server's REST endpoints.
type historyLog struct {
	mu     sync.RWMutex
	byRoom map[string][]protocol.ChatMessage
}

func newHistoryLog() *historyLog {
	return &historyLog{byRoom: make(map[string][]protocol.ChatMessage)}
}

func (l *historyLog) Append(conversationID string, msg protocol.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byRoom[conversationID] = append(l.byRoom[conversationID], msg)
}

// Page returns one page of history in creation order and whether more pages
// follow.
func (l *historyLog) Page(conversationID string, page, size int) ([]protocol.ChatMessage, bool) {
	if page < 1 {
		page = 1
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	msgs := l.byRoom[conversationID]
	start := (page - 1) * size
	if start >= len(msgs) {
		return nil, false
	}
	end := start + size
	if end > len(msgs) {
		end = len(msgs)
	}
	return append([]protocol.ChatMessage(nil), msgs[start:end]...), end < len(msgs)
}

// MarkRead flags the given ids as read; empty ids means every message not
// sent by the reader.
func (l *historyLog) MarkRead(conversationID, readerID string, messageIDs []string) {
	ids := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := l.byRoom[conversationID]
	for i := range msgs {
		if msgs[i].SenderID == readerID {
			continue
		}
		if len(messageIDs) == 0 || ids[msgs[i].ID] {
			msgs[i].IsRead = true
		}
	}
}

func (l *historyLog) Count(conversationID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byRoom[conversationID])
}
