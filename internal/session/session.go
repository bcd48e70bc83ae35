package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"parcel-chat-client/internal/api"
	"parcel-chat-client/internal/client"
	"parcel-chat-client/internal/protocol"
	"parcel-chat-client/internal/store"
)

// Conn is the slice of the realtime client the session drives. *client.Client
// satisfies it; tests substitute a mock.
type Conn interface {
	Connect()
	Disconnect()
	SetHandlers(h client.Handlers)
	SendMessage(text string, msgType protocol.MessageType)
	SendTyping(isTyping bool)
	SendReadReceipt(messageIDs []string)
	State() client.State
}

// Config wires one session to its collaborators. A credential or
// conversation change means building a fresh session with a fresh Conn.
type Config struct {
	ConversationID string
	LocalUserID    string
	LocalUserName  string

	History    api.HistoryFetcher
	ReadMarker api.ReadMarker
	Conn       Conn

	// Debounce windows; zero values use the store defaults.
	ReceiptWindow time.Duration
	TypingIdle    time.Duration

	// OnUpdate fires whenever the visible message list changes.
	OnUpdate func()
	// OnPeerTyping and OnPeerStatus surface typing and presence of the
	// other participant.
	OnPeerTyping func(userID string, isTyping bool)
	OnPeerStatus func(userID string, status protocol.UserStatus)

	OnConnected    func()
	OnDisconnected func()
	OnError        func(err error)
}

// Session drives one mounted chat screen: load history once, connect the
// realtime stream, merge inbound messages with optimistic local ones, batch
// read receipts, and debounce typing signals.
type Session struct {
	cfg      Config
	store    *store.MessageStore
	receipts *store.ReadReceiptBatcher
	typing   *store.TypingNotifier
}

// New builds a session. Call Start to load history and connect.
func New(cfg Config) *Session {
	s := &Session{
		cfg:   cfg,
		store: store.NewMessageStore(cfg.LocalUserID),
	}
	s.receipts = store.NewReadReceiptBatcher(cfg.ReceiptWindow, func(ids []string) {
		cfg.Conn.SendReadReceipt(ids)
	})
	s.typing = store.NewTypingNotifier(cfg.TypingIdle, func(isTyping bool) {
		cfg.Conn.SendTyping(isTyping)
	})
	return s
}

// Start loads the first history page, marks the conversation read, registers
// the frame handlers, and connects the realtime stream. History failure
// aborts the start; mark-read failure is logged and ignored.
func (s *Session) Start(ctx context.Context) error {
	page, err := s.cfg.History.GetChatHistory(ctx, s.cfg.ConversationID, 1)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.store.SetHistory(page.Results)
	s.notifyUpdate()

	if s.cfg.ReadMarker != nil {
		if err := s.cfg.ReadMarker.MarkConversationRead(ctx, s.cfg.ConversationID); err != nil {
			log.Printf("chat session: mark read failed: %v", err)
		}
	}

	s.cfg.Conn.SetHandlers(client.Handlers{
		OnConnected:    s.cfg.OnConnected,
		OnDisconnected: s.cfg.OnDisconnected,
		OnError:        s.cfg.OnError,
		OnChatMessage:  s.handleInbound,
		OnTyping:       s.cfg.OnPeerTyping,
		OnReadReceipt:  s.handleReadReceipt,
		OnUserStatus:   s.cfg.OnPeerStatus,
	})
	s.cfg.Conn.Connect()
	return nil
}

// SendText appends the message optimistically and sends it, returning the
// provisional record shown until the server echo replaces it.
func (s *Session) SendText(text string) protocol.ChatMessage {
	msg := s.store.AppendLocal(text, protocol.MessageTypeText, s.cfg.LocalUserName)
	s.cfg.Conn.SendMessage(text, protocol.MessageTypeText)
	s.notifyUpdate()
	return msg
}

// Keystroke records local typing input for the debounced typing indicator.
func (s *Session) Keystroke() {
	s.typing.Keystroke()
}

// Messages returns a snapshot of the visible message list.
func (s *Session) Messages() []protocol.ChatMessage {
	return s.store.Messages()
}

// ConnectionState exposes the underlying realtime state for UI banners.
func (s *Session) ConnectionState() client.State {
	return s.cfg.Conn.State()
}

// Stop tears the session down: typing stop, receipt batcher stop, then
// disconnect. Safe to call more than once.
func (s *Session) Stop() {
	s.typing.Stop()
	s.receipts.Stop()
	s.cfg.Conn.Disconnect()
}

func (s *Session) handleInbound(msg protocol.ChatMessage) {
	s.store.Merge(msg)
	if msg.SenderID != s.cfg.LocalUserID {
		s.receipts.Add(msg.ID)
	}
	s.notifyUpdate()
}

func (s *Session) handleReadReceipt(messageIDs []string, readBy string) {
	if readBy == s.cfg.LocalUserID {
		return
	}
	s.store.MarkRead(messageIDs)
	s.notifyUpdate()
}

func (s *Session) notifyUpdate() {
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate()
	}
}
