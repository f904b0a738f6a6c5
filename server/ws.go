package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/xhad/sourcebook/pkg/apperr"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS layer
	},
}

// Message is the websocket frame in both directions.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type queryMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    struct {
		WorkspaceID string `json:"workspaceId"`
		NotebookID  string `json:"notebookId"`
	} `json:"data"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msgType, content string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.WriteJSON(Message{Type: msgType, Content: content, Data: data}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var inflight sync.WaitGroup
	defer inflight.Wait()

	// cancelled before the wait above so in-flight queries stop early
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := &wsConn{conn: conn}
	limiter := rate.NewLimiter(rate.Limit(s.config.WSRate), s.config.WSBurst)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Error reading message: %v", err)
			}
			return
		}

		var msg queryMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			ws.send("error", "Invalid message", nil)
			continue
		}

		if !limiter.Allow() {
			ws.send("error", apperr.RateLimitedMessage, nil)
			continue
		}

		inflight.Add(1)
		go func(msg queryMessage) {
			defer inflight.Done()
			s.handleMessage(ctx, ws, msg)
		}(msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, ws *wsConn, msg queryMessage) {
	if msg.Type != "query" {
		ws.send("error", "Unsupported message type: "+msg.Type, nil)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	ws.send("status", "Searching sources...", nil)

	answer, err := s.chat.Ask(ctx, workspaceOf(msg.Data.WorkspaceID, msg.Data.NotebookID), msg.Content)
	if err != nil {
		log.Printf("Chat error: %v", err)
		ws.send("error", apperr.Message(err), nil)
		return
	}

	ws.send("response", answer.Response, map[string]interface{}{
		"sources":   answer.Sources,
		"citations": answer.Citations,
	})
}
