package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"parcel-chat-client/internal/observability"
	"parcel-chat-client/internal/protocol"
)

// State is the lifecycle state of the realtime connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

var (
	ErrNoToken             = errors.New("no access token available")
	ErrReconnectsExhausted = errors.New("reconnect attempts exhausted")
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
)

// Handlers are the subscriber callbacks for connection lifecycle and routed
// inbound frames. Nil fields are skipped. Callbacks run on the read-loop
// goroutine and must not block.
type Handlers struct {
	OnConnected    func()
	OnDisconnected func()
	OnError        func(err error)
	OnChatMessage  func(msg protocol.ChatMessage)
	OnTyping       func(userID string, isTyping bool)
	OnReadReceipt  func(messageIDs []string, readBy string)
	OnUserStatus   func(userID string, status protocol.UserStatus)
}

// Config ties a Client to one (conversation, credential) pair. A credential
// or conversation change means building a new Client, never mutating a live
// one.
type Config struct {
	// BaseURL is the REST API base; its scheme is swapped to ws/wss when
	// dialing.
	BaseURL        string
	ConversationID string
	Token          string

	// Reconnect tuning. Zero values use the defaults (5 attempts, 1s base
	// delay doubling up to 30s).
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Dialer overrides the websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Client owns the single realtime connection for a conversation: dialing,
// teardown, reconnection with capped exponential backoff, and routing of
// inbound frames to the registered handlers.
type Client struct {
	cfg Config

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	handlers Handlers
	attempts int
	delay    time.Duration
	retry    *time.Timer
	// gen increments on every connect/disconnect so read loops of replaced
	// connections can detect they are stale and bow out silently.
	gen int
}

// New builds a disconnected Client. Call Connect to open the stream.
func New(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	return &Client{cfg: cfg, state: StateDisconnected, delay: cfg.BaseDelay}
}

// SetHandlers swaps the callback set. The latest handlers are used for every
// subsequent notification regardless of when the connection was opened.
func (c *Client) SetHandlers(h Handlers) {
	c.mu.Lock()
	c.handlers = h
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the realtime stream. Connecting without a token moves the
// client to the error state without dialing; connecting while already
// connected is a no-op. A failed dial is treated like an abnormal close and
// goes through the reconnection policy.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	if c.cfg.Token == "" {
		c.state = StateError
		h := c.handlers
		c.mu.Unlock()
		log.Printf("chat client: refusing to connect without a token")
		if h.OnError != nil {
			h.OnError(ErrNoToken)
		}
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		observability.DecWSActive()
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	endpoint := c.endpoint()
	dialer := c.cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	c.mu.Unlock()

	_, span := otel.Tracer("parcel-chat-client/client").Start(context.Background(), "ws.connect")
	conn, _, err := dialer.Dial(endpoint, nil)
	span.End()

	if err != nil {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.state = StateDisconnected
		h := c.handlers
		c.mu.Unlock()

		log.Printf("chat client: dial failed: %v", err)
		observability.IncWSEvent("dial_error")
		if h.OnError != nil {
			h.OnError(err)
		}
		if h.OnDisconnected != nil {
			h.OnDisconnected()
		}
		c.scheduleReconnect(gen)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.delay = c.cfg.BaseDelay
	h := c.handlers
	c.mu.Unlock()

	observability.IncWSActive()
	observability.IncWSEvent("connect")
	if h.OnConnected != nil {
		h.OnConnected()
	}
	go c.readLoop(conn, gen)
}

// Disconnect deliberately tears the connection down: cancels any pending
// reconnect timer, sends a normal closure frame, and resets the backoff
// state. Safe to call when already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.gen++
	conn := c.conn
	c.conn = nil
	c.attempts = 0
	c.delay = c.cfg.BaseDelay
	hadConn := conn != nil
	c.state = StateDisconnected
	h := c.handlers
	if hadConn {
		// Written under the lock so it cannot interleave with write().
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
	c.mu.Unlock()

	if !hadConn {
		return
	}
	observability.DecWSActive()
	observability.IncWSEvent("disconnect")
	if h.OnDisconnected != nil {
		h.OnDisconnected()
	}
}

// SendMessage sends a chat message command. Dropped with a log line when not
// connected.
func (c *Client) SendMessage(text string, msgType protocol.MessageType) {
	payload, err := protocol.EncodeSendMessage(text, msgType)
	if err != nil {
		log.Printf("chat client: encode message: %v", err)
		return
	}
	c.write(payload)
}

// SendTyping sends a typing indicator command.
func (c *Client) SendTyping(isTyping bool) {
	payload, err := protocol.EncodeTyping(isTyping)
	if err != nil {
		log.Printf("chat client: encode typing: %v", err)
		return
	}
	c.write(payload)
}

// SendReadReceipt acknowledges the given message ids.
func (c *Client) SendReadReceipt(messageIDs []string) {
	if len(messageIDs) == 0 {
		return
	}
	payload, err := protocol.EncodeReadReceipt(messageIDs)
	if err != nil {
		log.Printf("chat client: encode read receipt: %v", err)
		return
	}
	c.write(payload)
}

func (c *Client) write(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		log.Printf("chat client: not connected, dropping outbound frame")
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("chat client: write error: %v", err)
	}
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(gen, err)
			return
		}
		c.dispatch(data)
	}
}

// handleReadError drives the close path: state moves to disconnected, the
// on-disconnected notification fires, and abnormal closures go through the
// reconnection policy.
func (c *Client) handleReadError(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		// Superseded by a newer connect or a manual disconnect.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	h := c.handlers
	c.mu.Unlock()

	observability.DecWSActive()
	observability.IncWSEvent("disconnect")
	if h.OnDisconnected != nil {
		h.OnDisconnected()
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	log.Printf("chat client: connection dropped: %v", err)
	c.scheduleReconnect(gen)
}

// scheduleReconnect applies the backoff policy: give up with the error state
// once attempts are exhausted, otherwise arm a single retry timer for the
// current delay and double the delay (capped) when it fires. gen is the
// generation observed at failure time; a Connect or Disconnect in between
// supersedes the retry.
func (c *Client) scheduleReconnect(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.state == StateError {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxAttempts {
		c.state = StateError
		h := c.handlers
		c.mu.Unlock()

		log.Printf("chat client: giving up after %d reconnect attempts", c.cfg.MaxAttempts)
		observability.IncWSEvent("reconnect_exhausted")
		if h.OnError != nil {
			h.OnError(ErrReconnectsExhausted)
		}
		return
	}
	c.attempts++
	attempt := c.attempts
	wait := c.delay
	c.retry = time.AfterFunc(wait, func() {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.retry = nil
		c.delay *= 2
		if c.delay > c.cfg.MaxDelay {
			c.delay = c.cfg.MaxDelay
		}
		c.mu.Unlock()
		c.Connect()
	})
	c.mu.Unlock()

	observability.IncReconnectAttempt()
	log.Printf("chat client: reconnecting in %s (attempt %d/%d)", wait, attempt, c.cfg.MaxAttempts)
}

// dispatch routes one raw inbound frame. Malformed or unknown frames are
// logged and dropped; they never tear the connection down.
func (c *Client) dispatch(data []byte) {
	frame, err := protocol.DecodeFrame(data)
	if err != nil {
		observability.IncDroppedFrame(dropReason(err))
		log.Printf("chat client: dropping inbound frame: %v", err)
		return
	}

	c.mu.Lock()
	h := c.handlers
	c.mu.Unlock()

	observability.IncFrame(string(frame.Type))
	switch frame.Type {
	case protocol.FrameChatMessage:
		if h.OnChatMessage != nil {
			h.OnChatMessage(*frame.Message)
		}
	case protocol.FrameTypingIndicator:
		if h.OnTyping != nil {
			h.OnTyping(frame.UserID, frame.IsTyping)
		}
	case protocol.FrameReadReceipt:
		if h.OnReadReceipt != nil {
			h.OnReadReceipt(frame.MessageIDs, frame.ReadBy)
		}
	case protocol.FrameUserStatus:
		if h.OnUserStatus != nil {
			h.OnUserStatus(frame.UserID, frame.Status)
		}
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnknownFrameType):
		return "unknown_type"
	case errors.Is(err, protocol.ErrMissingField):
		return "missing_field"
	default:
		return "malformed"
	}
}

// endpoint derives the websocket URL from the REST base by swapping the
// scheme and appending the conversation path and token query parameter.
func (c *Client) endpoint() string {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s/ws/chat/%s/?token=%s", base, c.cfg.ConversationID, url.QueryEscape(c.cfg.Token))
}
