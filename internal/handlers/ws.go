package handlers

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/collabrium-dev/collabrium/db"
	"github.com/collabrium-dev/collabrium/internal/types"
	"github.com/collabrium-dev/collabrium/internal/utils"
	"github.com/collabrium-dev/collabrium/internal/workspaces"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	workspaceClients   = make(map[uint]map[*websocket.Conn]bool)
	workspaceClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// BroadcastRefresh tells every client connected to the workspace that its
// contents changed and should be refetched.
func BroadcastRefresh(workspaceID uint) {
	workspaceClientsMu.RLock()
	clients, exists := workspaceClients[workspaceID]
	if !exists || len(clients) == 0 {
		workspaceClientsMu.RUnlock()
		return
	}

	// Copy the client set to avoid holding the lock during writes
	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	workspaceClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for broadcast: %v", err)
			continue
		}

		err := conn.WriteJSON(map[string]string{
			"type":         "refresh",
			"message":      "Workspace data updated",
			"workspace_id": strconv.FormatUint(uint64(workspaceID), 10),
		})

		if err != nil {
			log.Printf("Failed to broadcast refresh to client: %v", err)
			workspaceClientsMu.Lock()
			if clients, exists := workspaceClients[workspaceID]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(workspaceClients, workspaceID)
				}
			}
			workspaceClientsMu.Unlock()
			conn.Close()
		}
	}
}

func WebSocket(c *gin.Context) {
	userID, err := utils.GetCurrentUserID(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "User not authenticated"})
		return
	}

	workspaceID, err := utils.GetWorkspaceID(c)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "fail", "message": err.Error()})
		return
	}

	// The membership gate applies before the upgrade, same as any other
	// workspace-scoped read.
	if _, err := workspaces.CheckAccess(db.DB, userID, workspaceID); err != nil {
		RespondError(c, err)
		return
	}

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

	workspaceClientsMu.Lock()
	if workspaceClients[workspaceID] == nil {
		workspaceClients[workspaceID] = make(map[*websocket.Conn]bool)
	}
	workspaceClients[workspaceID][conn] = true
	workspaceClientsMu.Unlock()

	defer func() {
		workspaceClientsMu.Lock()

		if clients, exists := workspaceClients[workspaceID]; exists {
			delete(clients, conn)

			if len(clients) == 0 {
				delete(workspaceClients, workspaceID)
			}
		}

		workspaceClientsMu.Unlock()
		conn.Close()

		log.Printf("WebSocket connection closed for workspace %d", workspaceID)
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Failed to set write deadline for welcome message: %v", err)
		return
	}

	err = conn.WriteJSON(map[string]string{
		"type":         "connected",
		"message":      "WebSocket connection established",
		"workspace_id": strconv.FormatUint(uint64(workspaceID), 10),
	})

	if err != nil {
		log.Printf("Failed to send welcome message: %v", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// Stopping the ticker never closes its channel, so the ping goroutine
	// needs an explicit signal to exit when the read loop ends.
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					log.Printf("Failed to set write deadline for workspace %d: %v", workspaceID, err)
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					log.Printf("Ping failed for workspace %d: %v", workspaceID, err)
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Failed to set read deadline for workspace %d: %v", workspaceID, err)
			break
		}

		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for workspace %d: %v", workspaceID, err)
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			log.Printf("Received message from client in workspace %d: %s", workspaceID, string(message))
		case websocket.PongMessage:
			log.Printf("Received pong from workspace %d", workspaceID)
		}
	}
}
