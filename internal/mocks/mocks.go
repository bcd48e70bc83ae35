package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"parcel-chat-client/internal/api"
	"parcel-chat-client/internal/client"
	"parcel-chat-client/internal/protocol"
)

type HistoryFetcherMock struct {
	mock.Mock
}

func (m *HistoryFetcherMock) GetChatHistory(ctx context.Context, conversationID string, page int) (api.HistoryPage, error) {
	args := m.Called(ctx, conversationID, page)
	var resp api.HistoryPage
	if val := args.Get(0); val != nil {
		resp = val.(api.HistoryPage)
	}
	return resp, args.Error(1)
}

type ReadMarkerMock struct {
	mock.Mock
}

func (m *ReadMarkerMock) MarkConversationRead(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

// ConnMock implements session.Conn. It records the handlers passed to
// SetHandlers so tests can drive inbound frames through them.
type ConnMock struct {
	mock.Mock
	Handlers client.Handlers
}

func (m *ConnMock) Connect() {
	m.Called()
}

func (m *ConnMock) Disconnect() {
	m.Called()
}

func (m *ConnMock) SetHandlers(h client.Handlers) {
	m.Handlers = h
	m.Called(h)
}

func (m *ConnMock) SendMessage(text string, msgType protocol.MessageType) {
	m.Called(text, msgType)
}

func (m *ConnMock) SendTyping(isTyping bool) {
	m.Called(isTyping)
}

func (m *ConnMock) SendReadReceipt(messageIDs []string) {
	m.Called(messageIDs)
}

func (m *ConnMock) State() client.State {
	args := m.Called()
	return args.Get(0).(client.State)
}
