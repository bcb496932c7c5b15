package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"airracer/protocol"
)

// Callbacks holds one slot per server-originated message kind, plus
// OnDisconnected for transport-level close. Unset slots are silent no-ops.
type Callbacks struct {
	OnRoomCreated          func(roomCode string)
	OnRoomJoined           func(roomCode string)
	OnOpponentJoined       func()
	OnCountdownStart       func()
	OnRaceStart            func(startTime int64)
	OnOpponentState        func(state protocol.OpponentState)
	OnOpponentFinished     func(timeMs int64)
	OnRaceResult           func(result protocol.RaceResult)
	OnOpponentDisconnected func()
	OnError                func(message string)
	OnDisconnected         func()
}

// Client maintains one connection to the multiplayer server. Independent
// sessions use independent Client values; there is no shared state.
type Client struct {
	cb Callbacks

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	roomCode  string
	playerID  int
	isHost    bool
}

// New creates a disconnected client with the given callbacks.
func New(cb Callbacks) *Client {
	return &Client{cb: cb}
}

// DefaultServerURL derives the conventional server URL from a host name:
// the page's own host on the fixed multiplayer port.
func DefaultServerURL(host string) string {
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("ws://%s:%d", host, protocol.DefaultPort)
}

// Connect dials the server and resolves once the transport is open. It fails
// if the transport reports an error before opening. Connecting an already
// connected client closes the old connection first.
func (c *Client) Connect(ctx context.Context, serverURL string) error {
	c.Disconnect()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", serverURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Disconnect closes the connection and forgets the session. Safe to call at
// any time, connected or not.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.roomCode = ""
	c.playerID = 0
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Connected reports whether the transport is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// RoomCode returns the current room code, empty when not in a room.
func (c *Client) RoomCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

// PlayerID returns the assigned player ID, zero when not in a room.
func (c *Client) PlayerID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// IsHost reports whether the last room action was a create rather than a join.
func (c *Client) IsHost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isHost
}

// CreateRoom asks the server for a new room with this client as host.
func (c *Client) CreateRoom() {
	c.mu.Lock()
	c.isHost = true
	c.mu.Unlock()
	c.sendJSON(protocol.CreateRoom{Type: protocol.KindCreateRoom})
}

// JoinRoom asks the server to add this client to an existing room.
func (c *Client) JoinRoom(roomCode string) {
	c.mu.Lock()
	c.isHost = false
	c.mu.Unlock()
	c.sendJSON(protocol.JoinRoom{Type: protocol.KindJoinRoom, RoomCode: roomCode})
}

// Ready signals that this player is loaded and willing to start.
func (c *Client) Ready() {
	c.sendJSON(protocol.Ready{Type: protocol.KindReady})
}

// SendState ships a live position/orientation/speed snapshot to the server
// for relay to the opponent.
func (c *Client) SendState(position protocol.Vector3, quaternion protocol.Quaternion, speed float64) {
	c.sendJSON(protocol.State{
		Type:       protocol.KindState,
		Position:   position,
		Quaternion: quaternion,
		Speed:      speed,
	})
}

// SendFinish reports this player's elapsed race time in milliseconds.
func (c *Client) SendFinish(timeMs int64) {
	c.sendJSON(protocol.Finish{Type: protocol.KindFinish, Time: timeMs})
}

// sendJSON is the fire-and-forget send path: a no-op when disconnected.
// Writes are serialized under the mutex; the websocket allows one writer.
func (c *Client) sendJSON(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("multiplayer send failed: %v", err)
	}
}

// readLoop receives until the transport closes, dispatching each message to
// its callback slot.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.conn != conn // Connect replaced us; stay quiet
			if !stale {
				c.connected = false
				c.conn = nil
			}
			c.mu.Unlock()
			if !stale && c.cb.OnDisconnected != nil {
				c.cb.OnDisconnected()
			}
			return
		}
		c.handleMessage(data)
	}
}

// handleMessage decodes one inbound message and fires the matching callback.
// Undecodable messages are logged and dropped.
func (c *Client) handleMessage(data []byte) {
	kind, err := protocol.Kind(data)
	if err != nil {
		log.Printf("multiplayer received invalid message: %v", err)
		return
	}

	switch kind {
	case protocol.KindRoomCreated:
		var msg protocol.RoomCreated
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("malformed room_created: %v", err)
			return
		}
		c.mu.Lock()
		c.roomCode = msg.RoomCode
		c.playerID = msg.PlayerID
		c.mu.Unlock()
		if c.cb.OnRoomCreated != nil {
			c.cb.OnRoomCreated(msg.RoomCode)
		}

	case protocol.KindRoomJoined:
		var msg protocol.RoomJoined
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("malformed room_joined: %v", err)
			return
		}
		c.mu.Lock()
		c.roomCode = msg.RoomCode
		c.playerID = msg.PlayerID
		c.mu.Unlock()
		if c.cb.OnRoomJoined != nil {
			c.cb.OnRoomJoined(msg.RoomCode)
		}

	case protocol.KindOpponentJoined:
		if c.cb.OnOpponentJoined != nil {
			c.cb.OnOpponentJoined()
		}

	case protocol.KindCountdownStart:
		if c.cb.OnCountdownStart != nil {
			c.cb.OnCountdownStart()
		}

	case protocol.KindRaceStart:
		var msg protocol.RaceStart
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("malformed race_start: %v", err)
			return
		}
		if c.cb.OnRaceStart != nil {
			c.cb.OnRaceStart(msg.StartTime)
		}

	case protocol.KindOpponentState:
		var msg protocol.OpponentState
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("malformed opponent_state: %v", err)
			return
		}
		if c.cb.OnOpponentState != nil {
			c.cb.OnOpponentState(msg)
		}

	case protocol.KindOpponentFinished:
		var msg protocol.OpponentFinished
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("malformed opponent_finished: %v", err)
			return
		}
		if c.cb.OnOpponentFinished != nil {
			c.cb.OnOpponentFinished(msg.Time)
		}

	case protocol.KindRaceResult:
		var msg protocol.RaceResult
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("malformed race_result: %v", err)
			return
		}
		if c.cb.OnRaceResult != nil {
			c.cb.OnRaceResult(msg)
		}

	case protocol.KindOpponentDisconnected:
		if c.cb.OnOpponentDisconnected != nil {
			c.cb.OnOpponentDisconnected()
		}

	case protocol.KindError:
		var msg protocol.Error
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("malformed error message: %v", err)
			return
		}
		if c.cb.OnError != nil {
			c.cb.OnError(msg.Message)
		}

	default:
		log.Printf("multiplayer received unknown message type %q", kind)
	}
}
