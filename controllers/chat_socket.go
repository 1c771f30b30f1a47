package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	dbpkg "inmobot/db"
	"inmobot/dialogue"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jinzhu/gorm"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ChatMessage is the frame exchanged with the web chat widget.
type ChatMessage struct {
	Type    string `json:"type"` // message, reply, ping, pong, error
	ID      string `json:"id,omitempty"`
	Content string `json:"content,omitempty"`
}

type chatClient struct {
	senderID string
	socket   *websocket.Conn
	send     chan []byte
}

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
}

// GET /api/chat?session=<id>
// Canal web: cada conexão é um usuário ("web-<session>"); a sessão pode ser reaproveitada
// entre conexões passando o mesmo id.
func ChatSocket(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	session := strings.TrimSpace(c.Query("session"))
	if session == "" {
		session = uuid.NewString()
	}

	upgrader := newUpgrader(app.Config.Security.AllowedOrigins)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("chat: upgrade failed: %v", err)
		return
	}

	client := &chatClient{
		senderID: webSenderPrefix + session,
		socket:   conn,
		send:     make(chan []byte, 16),
	}
	log.Printf("chat: %s connected", client.senderID)

	go client.writePump()
	client.readPump(app, dbpkg.DBInstance(c))
}

// readPump handles one frame at a time, so a connection's messages are answered in order.
func (cl *chatClient) readPump(app *App, db *gorm.DB) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("chat: panic reading from %s: %v", cl.senderID, r)
		}
		close(cl.send)
		log.Printf("chat: %s disconnected", cl.senderID)
	}()

	cl.socket.SetReadLimit(maxMessageSize)
	cl.socket.SetReadDeadline(time.Now().Add(pongWait))
	cl.socket.SetPongHandler(func(string) error {
		cl.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := cl.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("chat: read error from %s: %v", cl.senderID, err)
			}
			return
		}

		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			cl.push(ChatMessage{Type: "error", Content: "invalid frame"})
			continue
		}

		switch msg.Type {
		case "ping":
			cl.push(ChatMessage{Type: "pong"})
		case "message", "":
			id := msg.ID
			if id == "" {
				id = uuid.NewString()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			reply, ok := handleDirect(ctx, app, db, id, dialogue.Inbound{SenderID: cl.senderID, Body: msg.Content})
			cancel()
			if ok {
				cl.push(ChatMessage{Type: "reply", ID: id, Content: reply})
			}
		}
	}
}

func (cl *chatClient) push(m ChatMessage) {
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	select {
	case cl.send <- b:
	default:
		log.Printf("chat: dropping frame for %s, client too slow", cl.senderID)
	}
}

func (cl *chatClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.socket.Close()
	}()

	for {
		select {
		case message, ok := <-cl.send:
			cl.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			cl.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
