package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for local dashboard
	},
}

// Event is one lifecycle notification pushed to websocket subscribers:
// an original was created, promoted to webvh, or moved through a
// commit/reveal step on its way to (or within) the btco layer. Type is
// "created", "promoted", "pending", or "confirmed";
// CommitTxid/RevealTxid are only set for the on-chain steps.
type Event struct {
	Type       string `json:"type"`
	Handle     string `json:"handle"`
	DID        string `json:"did"`
	Layer      string `json:"layer"`
	CommitTxid string `json:"commitTxid,omitempty"`
	RevealTxid string `json:"revealTxid,omitempty"`
}

// Hub fans lifecycle events out to every connected websocket client. The
// client set is owned by the Run goroutine alone: Subscribe and
// disconnect paths hand connections over the register/unregister
// channels instead of sharing a locked map.
type Hub struct {
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	events     chan Event
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		events:     make(chan Event, 256),
	}
}

// Run owns the client set for the hub's lifetime. A client that cannot
// take a write within the deadline is dropped so one stalled subscriber
// cannot back up lifecycle event delivery for the rest.
func (h *Hub) Run() {
	clients := make(map[*websocket.Conn]bool)
	for {
		select {
		case conn := <-h.register:
			clients[conn] = true
			log.Printf("[Events] websocket client connected (total %d)", len(clients))
		case conn := <-h.unregister:
			if clients[conn] {
				delete(clients, conn)
				conn.Close()
				log.Printf("[Events] websocket client disconnected (total %d)", len(clients))
			}
		case ev := <-h.events:
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[Events] marshal %s event for %s: %v", ev.Type, ev.DID, err)
				continue
			}
			for conn := range clients {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					log.Printf("[Events] dropping client after write error: %v", err)
					delete(clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Subscribe upgrades the request and registers the connection with the
// hub. The read loop exists only to observe the close handshake; clients
// never send anything the daemon acts on.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Events] websocket upgrade failed: %v", err)
		return
	}
	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[Events] websocket read error: %v", err)
				}
				return
			}
		}
	}()
}

// Broadcast queues ev for delivery to every connected client.
func (h *Hub) Broadcast(ev Event) {
	h.events <- ev
}
