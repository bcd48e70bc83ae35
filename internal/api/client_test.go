package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetChatHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/chats/room-42/messages/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [{"id":"m1","sender_id":"u2","sender_name":"Bob","content":"hi","message_type":"text","created_on":"2024-01-01T00:00:00Z","is_read":true}],
			"count": 51,
			"next": "/api/chats/room-42/messages/?page=3"
		}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "tok-abc")
	page, err := c.GetChatHistory(context.Background(), "room-42", 2)
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	assert.Equal(t, "m1", page.Results[0].ID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), page.Results[0].CreatedOn)
	assert.True(t, page.Results[0].IsRead)
	assert.Equal(t, 51, page.Count)
	assert.NotEmpty(t, page.Next)
}

func TestGetChatHistoryErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "tok-abc")
	_, err := c.GetChatHistory(context.Background(), "room-42", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestMarkConversationRead(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chats/room-42/read/", r.URL.Path)
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "tok-abc")
	require.NoError(t, c.MarkConversationRead(context.Background(), "room-42"))
	assert.True(t, called)
}

func TestMarkConversationReadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "tok-abc")
	err := c.MarkConversationRead(context.Background(), "room-42")
	require.Error(t, err)
}
