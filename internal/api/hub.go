/*
Package api
File: hub.go
Description:
    The WebSocket Hub is the real-time push layer.

    It keeps the registry of connected clients and fans every broadcast out
    to them. The engine reaches it through notify.Sink (toasts), the
    heartbeat through Pulse (zone snapshots).

    Architecture:
    - Hub: one per process, Run in its own goroutine.
    - Client: one browser connection.
    - ServeWs: upgrades GET /ws to a WebSocket.
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/everforgeworks/ecosnap-engine/internal/game"
	"github.com/everforgeworks/ecosnap-engine/internal/logger"
	"github.com/everforgeworks/ecosnap-engine/internal/notify"
)

// Envelope types.
const (
	TypeNotification = "notification"
	TypeZonePulse    = "zone_pulse"
)

const (
	broadcastBuffer = 64
	clientBuffer    = 256
	writeWait       = 10 * time.Second
)

// Message is the JSON envelope for everything sent over the socket.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Sender  string      `json:"sender"`
}

// ZonePulse is the heartbeat payload.
type ZonePulse struct {
	At                 time.Time   `json:"at"`
	NeighborhoodHealth int         `json:"neighborhoodHealth"`
	Zones              []game.Zone `json:"zones"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	clients map[*Client]bool

	// Broadcast carries encoded envelopes to every client.
	Broadcast chan []byte

	register   chan *Client
	unregister chan *Client

	done      chan struct{} // closed when Run returns
	connected atomic.Int64
	log       *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		Broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		log:        log.With("component", "hub"),
	}
}

// Run is the hub's event loop. It returns when ctx is done, after closing
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		close(h.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.clients[client] = true
			h.connected.Store(int64(len(h.clients)))
			h.log.Debug("ws client registered", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow or gone.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Store(int64(len(h.clients)))
}

// Clients is the number of registered connections.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Publish encodes an envelope and queues it. A full queue drops the message.
func (h *Hub) Publish(msgType string, payload interface{}) {
	raw, err := json.Marshal(Message{Type: msgType, Payload: payload, Sender: "system"})
	if err != nil {
		h.log.Error("encode ws message", "type", msgType, "err", err)
		return
	}
	select {
	case h.Broadcast <- raw:
	default:
		h.log.Warn("ws broadcast queue full, dropping", "type", msgType)
	}
}

// Notify implements notify.Sink.
func (h *Hub) Notify(msg notify.Message) {
	h.Publish(TypeNotification, msg)
}

// Pulse broadcasts the heartbeat snapshot of all zones.
func (h *Hub) Pulse(at time.Time, zones []game.Zone) {
	h.Publish(TypeZonePulse, ZonePulse{At: at, NeighborhoodHealth: game.NeighborhoodHealth(zones), Zones: zones})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and starts the client's pumps.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only watches for the close; clients have nothing to say.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("ws read error", "err", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
