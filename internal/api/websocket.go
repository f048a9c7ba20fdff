package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fusionquant/internal/logging"
	"fusionquant/internal/pipeline"
)

var wsLog = logging.Default().Named("api.ws")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// Client is one connected websocket subscriber, adapted from the prior
// WSClient: a buffered send channel drained by a dedicated writePump
// goroutine so a slow reader never blocks the broadcaster.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	mu   sync.Mutex
}

// Hub fans decision outcomes out to every connected client, adapted from
// the prior WSHub.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub builds an idle hub; call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 4096),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives the hub's register/unregister/broadcast loop until its
// channels are abandoned; it is meant to run for the lifetime of the process.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					wsLog.Warn("client send channel full, dropping message")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount reports the number of currently connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// decisionEvent is the wire shape pushed to every subscriber on each
// completed pipeline run.
type decisionEvent struct {
	RequestID  string  `json:"request_id"`
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	TotalScore float64 `json:"total_score"`
	Regime     string  `json:"regime"`
	GatePassed bool    `json:"gate_passed"`
}

// BroadcastDecision marshals outcome and pushes it to every subscriber.
// A full broadcast channel drops the message rather than blocking the
// caller, since streaming is best-effort display, never the system of record.
func (h *Hub) BroadcastDecision(outcome pipeline.Outcome) {
	data, err := json.Marshal(decisionEvent{
		RequestID:  outcome.RequestID.String(),
		Symbol:     outcome.Metadata.Symbol,
		Action:     outcome.Decision.Action.String(),
		Confidence: outcome.Decision.Confidence,
		TotalScore: outcome.Decision.TotalScore,
		Regime:     outcome.Decision.Regime.String(),
		GatePassed: outcome.Decision.SafetyGate.Passed,
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		wsLog.Warn("hub broadcast channel full, dropping decision event")
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wsLog.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, 64), hub: s.hub}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound messages but must run so gorilla/websocket
// processes control frames (ping/close) and detects a dead connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
