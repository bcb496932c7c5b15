package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"airracer/game/race"
	"airracer/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. State snapshots are the
	// largest inbound frames and stay well under this.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The game page is served from any LAN host; allow all origins.
		return true
	},
}

// Handler upgrades connections and feeds their messages to the race service.
type Handler struct {
	svc *race.Service
}

// NewHandler creates a Handler for the given race service.
func NewHandler(svc *race.Service) *Handler {
	return &Handler{svc: svc}
}

// ServeHTTP implements http.Handler so the handler can be mounted directly.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r)
}

// ServeWS handles WebSocket requests from clients.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, 256),
	}
	log.Printf("client %s connected from %s", c.id, conn.RemoteAddr())

	go c.writePump()
	go c.readPump(h)
}

// client is one connected player. It satisfies race.Conn so the race service
// can address it without knowing about sockets.
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Send marshals an outbound message and queues it for the write pump. It
// fails fast instead of blocking when the peer cannot keep up.
func (c *client) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("client %s send buffer full", c.id)
	}
}

// readPump pumps messages from the connection into the race service.
func (c *client) readPump(h *Handler) {
	defer func() {
		h.svc.Disconnect(c)
		close(c.send)
		c.conn.Close()
		log.Printf("client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("client %s read error: %v", c.id, err)
			}
			return
		}
		h.dispatch(c, data)
	}
}

// writePump pumps queued messages to the connection and keeps it alive with
// periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch decodes one inbound frame and routes it to the race service.
// Malformed frames and unknown kinds are logged and dropped; the connection
// stays open either way.
func (h *Handler) dispatch(c *client, data []byte) {
	kind, err := protocol.Kind(data)
	if err != nil {
		log.Printf("client %s sent invalid message: %v", c.id, err)
		return
	}

	switch kind {
	case protocol.KindCreateRoom:
		h.svc.CreateRoom(c)

	case protocol.KindJoinRoom:
		var msg protocol.JoinRoom
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("client %s sent malformed join_room: %v", c.id, err)
			return
		}
		h.svc.JoinRoom(c, msg.RoomCode)

	case protocol.KindReady:
		h.svc.Ready(c)

	case protocol.KindState:
		var msg protocol.State
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("client %s sent malformed state: %v", c.id, err)
			return
		}
		h.svc.RelayState(c, msg)

	case protocol.KindFinish:
		var msg protocol.Finish
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("client %s sent malformed finish: %v", c.id, err)
			return
		}
		h.svc.Finish(c, msg.Time)

	default:
		log.Printf("client %s sent unknown message type %q", c.id, kind)
	}
}
