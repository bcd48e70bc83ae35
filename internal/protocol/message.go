package protocol

import "time"

// MessageType classifies the content of a chat message.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeSystem MessageType = "system"
)

// UserStatus is the presence state carried by user_status frames.
type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusOffline UserStatus = "offline"
)

// ChatMessage is the wire representation of one message in a conversation.
// Server-assigned messages carry the authoritative id; optimistic local
// copies use a provisional "local-" prefixed id until the echo arrives.
type ChatMessage struct {
	ID          string      `json:"id"`
	SenderID    string      `json:"sender_id"`
	SenderName  string      `json:"sender_name"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	CreatedOn   time.Time   `json:"created_on"`
	IsRead      bool        `json:"is_read"`
}
