package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"parcel-chat-client/internal/protocol"
)

// HistoryPage is the paginated chat history envelope returned by the
// marketplace API.
type HistoryPage struct {
	Results []protocol.ChatMessage `json:"results"`
	Count   int                    `json:"count"`
	Next    string                 `json:"next,omitempty"`
}

// HistoryFetcher loads paginated history for a conversation.
type HistoryFetcher interface {
	GetChatHistory(ctx context.Context, conversationID string, page int) (HistoryPage, error)
}

// ReadMarker marks a whole conversation read, fire-and-forget at mount.
type ReadMarker interface {
	MarkConversationRead(ctx context.Context, conversationID string) error
}

// Client calls the marketplace chat REST endpoints with bearer auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a Client for the given base URL and access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// GetChatHistory fetches one page of conversation history.
func (c *Client) GetChatHistory(ctx context.Context, conversationID string, page int) (HistoryPage, error) {
	ctx, span := otel.Tracer("parcel-chat-client/api").Start(ctx, "api.chat_history")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/chats/%s/messages/?page=%d", c.baseURL, conversationID, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("build history request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("fetch chat history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HistoryPage{}, fmt.Errorf("fetch chat history: unexpected status %d", resp.StatusCode)
	}

	var pageResp HistoryPage
	if err := json.NewDecoder(resp.Body).Decode(&pageResp); err != nil {
		return HistoryPage{}, fmt.Errorf("decode chat history: %w", err)
	}
	return pageResp, nil
}

// MarkConversationRead tells the backend the conversation has been opened.
func (c *Client) MarkConversationRead(ctx context.Context, conversationID string) error {
	ctx, span := otel.Tracer("parcel-chat-client/api").Start(ctx, "api.mark_read")
	defer span.End()

	endpoint := fmt.Sprintf("%s/api/chats/%s/read/", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build mark-read request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("mark conversation read: unexpected status %d", resp.StatusCode)
	}
	return nil
}
