package client

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-chat-client/internal/protocol"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newWSServer starts a websocket server that upgrades every request and
// hands the connection to handler on its own goroutine.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		ConversationID: "room-42",
		Token:          "tok-abc",
		MaxAttempts:    3,
		BaseDelay:      10 * time.Millisecond,
		MaxDelay:       40 * time.Millisecond,
	}
}

func TestConnectDispatchesInboundFrames(t *testing.T) {
	frame, err := protocol.EncodeFrame(protocol.Frame{
		Type: protocol.FrameChatMessage,
		Message: &protocol.ChatMessage{
			ID: "m1", SenderID: "u2", SenderName: "Bob",
			Content: "hi", MessageType: protocol.MessageTypeText,
			CreatedOn: time.Now().UTC(),
		},
	})
	require.NoError(t, err)

	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		assert.Equal(t, "/ws/chat/room-42/", r.URL.Path)
		assert.Equal(t, "tok-abc", r.URL.Query().Get("token"))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	var (
		mu        sync.Mutex
		connected bool
		received  []protocol.ChatMessage
	)
	c := New(testConfig(srv.URL))
	c.SetHandlers(Handlers{
		OnConnected: func() {
			mu.Lock()
			connected = true
			mu.Unlock()
		},
		OnChatMessage: func(msg protocol.ChatMessage) {
			mu.Lock()
			received = append(received, msg)
			mu.Unlock()
		},
	})
	c.Connect()
	defer c.Disconnect()

	require.Equal(t, StateConnected, c.State())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connected && len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "m1", received[0].ID)
	assert.Equal(t, "hi", received[0].Content)
}

func TestConnectWithoutTokenEntersErrorState(t *testing.T) {
	var dialed atomic.Int32
	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		dialed.Add(1)
		conn.Close()
	})

	cfg := testConfig(srv.URL)
	cfg.Token = ""
	c := New(cfg)

	var errs []error
	c.SetHandlers(Handlers{OnError: func(err error) { errs = append(errs, err) }})
	c.Connect()

	assert.Equal(t, StateError, c.State())
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrNoToken)
	assert.Equal(t, int32(0), dialed.Load())
}

func TestConnectWhileConnectedIsNoOp(t *testing.T) {
	var upgrades atomic.Int32
	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		upgrades.Add(1)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := New(testConfig(srv.URL))
	c.Connect()
	defer c.Disconnect()
	require.Equal(t, StateConnected, c.State())

	c.Connect()
	assert.Equal(t, int32(1), upgrades.Load())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:0"))

	c.Disconnect()
	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())

	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	c = New(testConfig(srv.URL))
	c.Connect()
	require.Equal(t, StateConnected, c.State())

	c.Disconnect()
	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())
}

func TestSendWhileDisconnectedIsDropped(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:0"))

	// Must not panic, must not change state.
	c.SendMessage("hello", protocol.MessageTypeText)
	c.SendTyping(true)
	c.SendReadReceipt([]string{"m1"})

	assert.Equal(t, StateDisconnected, c.State())
}

func TestUnknownFramesAreTolerated(t *testing.T) {
	valid, err := protocol.EncodeFrame(protocol.Frame{
		Type: protocol.FrameTypingIndicator, UserID: "u2", IsTyping: true,
	})
	require.NoError(t, err)

	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery"}`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, valid))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	var (
		mu     sync.Mutex
		typing int
		other  int
	)
	c := New(testConfig(srv.URL))
	c.SetHandlers(Handlers{
		OnTyping: func(userID string, isTyping bool) {
			mu.Lock()
			typing++
			mu.Unlock()
		},
		OnChatMessage: func(protocol.ChatMessage) {
			mu.Lock()
			other++
			mu.Unlock()
		},
	})
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return typing == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StateConnected, c.State())
	mu.Lock()
	assert.Zero(t, other)
	mu.Unlock()
}

func TestReconnectAfterAbnormalClose(t *testing.T) {
	var upgrades atomic.Int32
	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		if upgrades.Add(1) == 1 {
			// Drop the first connection without a close frame.
			conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	var disconnects atomic.Int32
	c := New(testConfig(srv.URL))
	c.SetHandlers(Handlers{OnDisconnected: func() { disconnects.Add(1) }})
	c.Connect()
	defer c.Disconnect()

	require.Eventually(t, func() bool {
		return c.State() == StateConnected && upgrades.Load() == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, disconnects.Load(), int32(1))

	// A successful reconnect resets the backoff bookkeeping.
	c.mu.Lock()
	assert.Zero(t, c.attempts)
	assert.Equal(t, c.cfg.BaseDelay, c.delay)
	c.mu.Unlock()
}

func TestReconnectExhaustionEntersErrorState(t *testing.T) {
	var dials atomic.Int32
	var times struct {
		mu sync.Mutex
		at []time.Time
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		times.mu.Lock()
		times.at = append(times.at, time.Now())
		times.mu.Unlock()
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	var errs struct {
		mu   sync.Mutex
		list []error
	}
	c := New(testConfig(srv.URL))
	c.SetHandlers(Handlers{OnError: func(err error) {
		errs.mu.Lock()
		errs.list = append(errs.list, err)
		errs.mu.Unlock()
	}})
	c.Connect()

	require.Eventually(t, func() bool {
		return c.State() == StateError
	}, 5*time.Second, 5*time.Millisecond)

	// Initial dial plus MaxAttempts retries, nothing after exhaustion.
	assert.Equal(t, int32(4), dials.Load())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(4), dials.Load())

	errs.mu.Lock()
	last := errs.list[len(errs.list)-1]
	errs.mu.Unlock()
	assert.ErrorIs(t, last, ErrReconnectsExhausted)

	// Timers never fire early: waits are at least 10ms, 20ms, 40ms (capped).
	times.mu.Lock()
	defer times.mu.Unlock()
	require.Len(t, times.at, 4)
	assert.GreaterOrEqual(t, times.at[1].Sub(times.at[0]), 10*time.Millisecond)
	assert.GreaterOrEqual(t, times.at[2].Sub(times.at[1]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, times.at[3].Sub(times.at[2]), 40*time.Millisecond)
}

func TestManualDisconnectCancelsPendingRetry(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.BaseDelay = 50 * time.Millisecond
	c := New(cfg)
	c.Connect()
	require.Equal(t, int32(1), dials.Load())

	// Disconnect before the retry timer fires; no further dials may happen
	// and the attempt counter is discarded.
	c.Disconnect()
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, StateDisconnected, c.State())

	c.mu.Lock()
	assert.Zero(t, c.attempts)
	c.mu.Unlock()
}
