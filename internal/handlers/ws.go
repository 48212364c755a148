package handlers

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hexascan-dev/hexascan/internal/models"
	"github.com/hexascan-dev/hexascan/internal/types"
)

var (
	issueClients   = make(map[uint]map[*websocket.Conn]bool)
	issueClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// BroadcastEvent pushes a freshly appended escalation event to every client
// watching its issue. Registered as the engine's event sink.
func BroadcastEvent(event models.EscalationEvent) {
	issueClientsMu.RLock()
	clients, exists := issueClients[event.EscalationIssueID]
	if !exists || len(clients) == 0 {
		issueClientsMu.RUnlock()
		return
	}

	// Copy the client set so the lock is not held while writing
	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	issueClientsMu.RUnlock()

	payload := gin.H{
		"type":       "event",
		"issue_id":   event.EscalationIssueID,
		"event_type": event.EventType,
		"level":      event.Level,
		"user_name":  event.UserName,
		"message":    event.Message,
	}

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for broadcast: %v", err)
			continue
		}

		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("Failed to broadcast event to client: %v", err)
			issueClientsMu.Lock()
			if clients, exists := issueClients[event.EscalationIssueID]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(issueClients, event.EscalationIssueID)
				}
			}
			issueClientsMu.Unlock()
			conn.Close()
		}
	}
}

// WebSocket streams an issue's escalation events to an operator as they
// happen.
func WebSocket(c *gin.Context) {
	issueIDStr := c.Param("issue_id")

	issueID64, err := strconv.ParseUint(issueIDStr, 10, 32)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Issue ID"})
		return
	}

	issueID := uint(issueID64)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range types.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Failed to set initial read deadline: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline in pong handler: %v", err)
		}
		return nil
	})

	issueClientsMu.Lock()
	if issueClients[issueID] == nil {
		issueClients[issueID] = make(map[*websocket.Conn]bool)
	}
	issueClients[issueID][conn] = true
	issueClientsMu.Unlock()

	defer func() {
		issueClientsMu.Lock()

		if clients, exists := issueClients[issueID]; exists {
			delete(clients, conn)

			if len(clients) == 0 {
				delete(issueClients, issueID)
			}
		}

		issueClientsMu.Unlock()
		conn.Close()

		log.Printf("WebSocket connection closed for issue %d", issueID)
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Failed to set write deadline for welcome message: %v", err)
		return
	}

	err = conn.WriteJSON(gin.H{
		"type":     "connected",
		"message":  "Watching escalation events",
		"issue_id": issueID,
	})

	if err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		// Send pings periodically
		for range ticker.C {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Failed to set write deadline for issue %d: %v", issueID, err)
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Ping failed for issue %d: %v", issueID, err)
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline for issue %d: %v", issueID, err)
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for issue %d: %v", issueID, err)
			}
			break
		}
	}
}
