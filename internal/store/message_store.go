package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"parcel-chat-client/internal/protocol"
)

// echoWindow bounds how far apart an optimistic local message and its server
// echo may be timestamped while still being treated as the same message.
const echoWindow = 2 * time.Second

// MessageStore keeps the ordered, de-duplicated message list for one
// conversation: history loaded at mount plus live inbound and optimistic
// local messages. Invariant: at most one entry per message id, and at most
// one entry per (local sender, content) pair within the echo window.
type MessageStore struct {
	mu          sync.Mutex
	localUserID string
	messages    []protocol.ChatMessage
}

// NewMessageStore builds an empty store for the given local user.
func NewMessageStore(localUserID string) *MessageStore {
	return &MessageStore{localUserID: localUserID}
}

// SetHistory replaces the list with fetched history.
func (s *MessageStore) SetHistory(msgs []protocol.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]protocol.ChatMessage(nil), msgs...)
}

// AppendLocal adds an optimistic local message with a provisional id and
// returns the appended record.
func (s *MessageStore) AppendLocal(content string, msgType protocol.MessageType, senderName string) protocol.ChatMessage {
	msg := protocol.ChatMessage{
		ID:          "local-" + uuid.NewString(),
		SenderID:    s.localUserID,
		SenderName:  senderName,
		Content:     content,
		MessageType: msgType,
		CreatedOn:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg
}

// Merge folds an inbound message into the list. A message whose id is
// already present is dropped. An inbound message from the local user that
// matches an existing local message by content within the echo window
// replaces that entry in place, so the server copy supersedes the optimistic
// one without growing the list. Everything else is appended.
func (s *MessageStore) Merge(msg protocol.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.messages {
		if existing.ID == msg.ID {
			return
		}
	}

	if msg.SenderID == s.localUserID {
		for i, existing := range s.messages {
			if existing.SenderID == s.localUserID &&
				existing.Content == msg.Content &&
				absDuration(existing.CreatedOn.Sub(msg.CreatedOn)) <= echoWindow {
				s.messages[i] = msg
				return
			}
		}
	}

	s.messages = append(s.messages, msg)
}

// MarkRead flags the given message ids as read.
func (s *MessageStore) MarkRead(messageIDs []string) {
	ids := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if ids[s.messages[i].ID] {
			s.messages[i].IsRead = true
		}
	}
}

// Messages returns a snapshot copy of the current list.
func (s *MessageStore) Messages() []protocol.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ChatMessage(nil), s.messages...)
}

// Len returns the number of visible messages.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
