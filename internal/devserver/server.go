package devserver

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"parcel-chat-client/internal/protocol"
)

const historyPageSize = 50

// Server is a self-contained stand-in for the marketplace chat backend,
// used for local development and integration tests. Auth is deliberately
// thin: any non-empty token is accepted and doubles as the user id unless a
// user_id query parameter is given.
type Server struct {
	hub *Hub
	log *historyLog
}

// New builds a dev server with empty state.
func New() *Server {
	return &Server{hub: NewHub(), log: newHistoryLog()}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Router wires the websocket and REST endpoints the client consumes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws/chat/:conversation_id/", s.handleWS)
	r.GET("/api/chats/:conversation_id/messages/", s.handleHistory)
	r.POST("/api/chats/:conversation_id/read/", s.handleMarkRead)

	return r
}

// handleWS upgrades the connection, joins the room, and pumps inbound
// commands until the peer goes away.
func (s *Server) handleWS(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	userID := c.Query("user_id")
	if userID == "" {
		userID = token
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.hub.Add(conversationID, conn, userID)
	s.announceStatus(conversationID, conn, userID, protocol.UserStatusOnline)

	go s.readPump(conversationID, conn, userID)
}

func (s *Server) readPump(conversationID string, conn *websocket.Conn, userID string) {
	defer func() {
		s.hub.Remove(conversationID, conn)
		conn.Close()
		s.announceStatus(conversationID, nil, userID, protocol.UserStatusOffline)
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("devserver: read error: %v", err)
			}
			return
		}
		s.handleCommand(conversationID, conn, userID, data)
	}
}

// handleCommand interprets one outbound client command. Chat messages are
// persisted and echoed to the whole room with a server-assigned id; typing
// and read receipts are relayed to the other participants.
func (s *Server) handleCommand(conversationID string, conn *websocket.Conn, userID string, data []byte) {
	var cmd struct {
		Type        protocol.CommandType `json:"type"`
		Message     string               `json:"message"`
		MessageType protocol.MessageType `json:"message_type"`
		IsTyping    *bool                `json:"is_typing"`
		MessageIDs  []string             `json:"message_ids"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Printf("devserver: bad command: %v", err)
		return
	}

	switch cmd.Type {
	case protocol.CommandChatMessage:
		msgType := cmd.MessageType
		if msgType == "" {
			msgType = protocol.MessageTypeText
		}
		msg := protocol.ChatMessage{
			ID:          uuid.NewString(),
			SenderID:    userID,
			SenderName:  userID,
			Content:     cmd.Message,
			MessageType: msgType,
			CreatedOn:   time.Now().UTC(),
		}
		s.log.Append(conversationID, msg)
		payload, err := protocol.EncodeFrame(protocol.Frame{Type: protocol.FrameChatMessage, Message: &msg})
		if err != nil {
			log.Printf("devserver: encode message frame: %v", err)
			return
		}
		s.hub.Broadcast(conversationID, payload)
	case protocol.CommandTyping:
		if cmd.IsTyping == nil {
			log.Printf("devserver: typing command without is_typing")
			return
		}
		payload, err := protocol.EncodeFrame(protocol.Frame{
			Type:     protocol.FrameTypingIndicator,
			UserID:   userID,
			IsTyping: *cmd.IsTyping,
		})
		if err != nil {
			return
		}
		s.hub.BroadcastExcept(conversationID, conn, payload)
	case protocol.CommandReadReceipt:
		s.log.MarkRead(conversationID, userID, cmd.MessageIDs)
		payload, err := protocol.EncodeFrame(protocol.Frame{
			Type:       protocol.FrameReadReceipt,
			MessageIDs: cmd.MessageIDs,
			ReadBy:     userID,
		})
		if err != nil {
			return
		}
		s.hub.BroadcastExcept(conversationID, conn, payload)
	default:
		log.Printf("devserver: unknown command type %q", cmd.Type)
	}
}

func (s *Server) announceStatus(conversationID string, skip *websocket.Conn, userID string, status protocol.UserStatus) {
	payload, err := protocol.EncodeFrame(protocol.Frame{
		Type:   protocol.FrameUserStatus,
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}
	s.hub.BroadcastExcept(conversationID, skip, payload)
}

func (s *Server) handleHistory(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	msgs, hasNext := s.log.Page(conversationID, page, historyPageSize)
	next := ""
	if hasNext {
		next = fmt.Sprintf("/api/chats/%s/messages/?page=%d", conversationID, page+1)
	}
	if msgs == nil {
		msgs = []protocol.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": msgs,
		"count":   s.log.Count(conversationID),
		"next":    next,
	})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	readerID := c.Query("user_id")
	s.log.MarkRead(conversationID, readerID, nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
