package protocol

import "encoding/json"

// CommandType discriminates outbound client commands.
type CommandType string

const (
	CommandChatMessage CommandType = "chat_message"
	CommandTyping      CommandType = "typing"
	CommandReadReceipt CommandType = "read_receipt"
)

// SendMessageCommand asks the server to persist and fan out a chat message.
type SendMessageCommand struct {
	Type        CommandType `json:"type"`
	Message     string      `json:"message"`
	MessageType MessageType `json:"message_type"`
}

// TypingCommand signals that the local user started or stopped typing.
type TypingCommand struct {
	Type     CommandType `json:"type"`
	IsTyping bool        `json:"is_typing"`
}

// ReadReceiptCommand acknowledges that the listed messages have been seen.
type ReadReceiptCommand struct {
	Type       CommandType `json:"type"`
	MessageIDs []string    `json:"message_ids"`
}

// EncodeSendMessage serializes a chat message command.
func EncodeSendMessage(text string, msgType MessageType) ([]byte, error) {
	return json.Marshal(SendMessageCommand{Type: CommandChatMessage, Message: text, MessageType: msgType})
}

// EncodeTyping serializes a typing indicator command.
func EncodeTyping(isTyping bool) ([]byte, error) {
	return json.Marshal(TypingCommand{Type: CommandTyping, IsTyping: isTyping})
}

// EncodeReadReceipt serializes a read receipt command.
func EncodeReadReceipt(messageIDs []string) ([]byte, error) {
	return json.Marshal(ReadReceiptCommand{Type: CommandReadReceipt, MessageIDs: messageIDs})
}
