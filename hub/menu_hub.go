package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/menu-catalog/metrics"
	"github.com/yeremiapane/menu-catalog/utils"
)

// Event types
const (
	EventMenuItemCreated = "menu_item_created"
	EventMenuItemUpdated = "menu_item_updated"
	EventMenuItemDeleted = "menu_item_deleted"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many pending events a client may queue before it is dropped.
	sendBuffer = 16
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// client owns one connection. Only its writer goroutine writes data frames.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the connected websocket clients and fans messages out to them.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
	metrics *metrics.Metrics
}

func New(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		metrics: m,
	}
}

// Register adds the connection and starts its writer.
func (h *Hub) Register(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	h.clients[conn] = c
	h.metrics.SetHubClients(len(h.clients))
	h.mutex.Unlock()

	go h.writePump(c)
}

// Unregister removes the connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.remove(conn)
}

func (h *Hub) remove(conn *websocket.Conn) {
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
	conn.Close()
	h.metrics.SetHubClients(len(h.clients))
}

func (h *Hub) writePump(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.InfoLogger.Warnf("hub: dropping client %s: %v", c.conn.RemoteAddr(), err)
			h.Unregister(c.conn)
			return
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast queues one event for every client without waiting on the network.
// Clients whose queue is full are dropped. Safe on a nil *Hub.
func (h *Hub) Broadcast(event string, data interface{}) {
	if h == nil {
		return
	}

	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Errorf("hub: marshal %s: %v", event, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			utils.InfoLogger.Warnf("hub: dropping slow client %s", conn.RemoteAddr())
			h.remove(conn)
		}
	}
	utils.InfoLogger.Debugf("hub: broadcast %s to %d clients", event, len(h.clients))
}

// CloseAll disconnects every client, used at shutdown.
func (h *Hub) CloseAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		h.remove(conn)
	}
}
