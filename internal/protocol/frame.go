package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FrameType discriminates inbound realtime frames.
type FrameType string

const (
	FrameChatMessage     FrameType = "chat_message"
	FrameTypingIndicator FrameType = "typing_indicator"
	FrameReadReceipt     FrameType = "read_receipt"
	FrameUserStatus      FrameType = "user_status"
)

var (
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrMissingField     = errors.New("frame missing required field")
)

// Frame is one decoded inbound unit. Only the fields belonging to Type are
// populated; anything that does not match a known variant is rejected at the
// parse boundary instead of leaking partially-filled frames to callers.
type Frame struct {
	Type       FrameType
	Message    *ChatMessage // chat_message
	UserID     string       // typing_indicator, user_status
	IsTyping   bool         // typing_indicator
	MessageIDs []string     // read_receipt
	ReadBy     string       // read_receipt
	Status     UserStatus   // user_status
}

// wireFrame mirrors the JSON envelope. Pointer fields distinguish absent
// from zero-valued so required-field checks are exact.
type wireFrame struct {
	Type       FrameType    `json:"type"`
	Message    *ChatMessage `json:"message,omitempty"`
	UserID     *string      `json:"user_id,omitempty"`
	IsTyping   *bool        `json:"is_typing,omitempty"`
	MessageIDs []string     `json:"message_ids,omitempty"`
	ReadBy     *string      `json:"read_by,omitempty"`
	Status     *UserStatus  `json:"status,omitempty"`
}

// DecodeFrame parses and validates one inbound frame.
func DecodeFrame(data []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	switch w.Type {
	case FrameChatMessage:
		if w.Message == nil {
			return Frame{}, fmt.Errorf("%w: chat_message needs message", ErrMissingField)
		}
		return Frame{Type: w.Type, Message: w.Message}, nil
	case FrameTypingIndicator:
		if w.UserID == nil || w.IsTyping == nil {
			return Frame{}, fmt.Errorf("%w: typing_indicator needs user_id and is_typing", ErrMissingField)
		}
		return Frame{Type: w.Type, UserID: *w.UserID, IsTyping: *w.IsTyping}, nil
	case FrameReadReceipt:
		if w.MessageIDs == nil || w.ReadBy == nil {
			return Frame{}, fmt.Errorf("%w: read_receipt needs message_ids and read_by", ErrMissingField)
		}
		return Frame{Type: w.Type, MessageIDs: w.MessageIDs, ReadBy: *w.ReadBy}, nil
	case FrameUserStatus:
		if w.UserID == nil || w.Status == nil {
			return Frame{}, fmt.Errorf("%w: user_status needs user_id and status", ErrMissingField)
		}
		return Frame{Type: w.Type, UserID: *w.UserID, Status: *w.Status}, nil
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownFrameType, w.Type)
	}
}

// EncodeFrame serializes a frame to the wire envelope. The client only
// decodes frames; encoding is used by the dev server and by tests.
func EncodeFrame(f Frame) ([]byte, error) {
	w := wireFrame{Type: f.Type}
	switch f.Type {
	case FrameChatMessage:
		w.Message = f.Message
	case FrameTypingIndicator:
		w.UserID = &f.UserID
		w.IsTyping = &f.IsTyping
	case FrameReadReceipt:
		w.MessageIDs = f.MessageIDs
		w.ReadBy = &f.ReadBy
	case FrameUserStatus:
		w.UserID = &f.UserID
		w.Status = &f.Status
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, f.Type)
	}
	return json.Marshal(w)
}
