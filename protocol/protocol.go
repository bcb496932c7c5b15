// Package protocol defines the wire vocabulary shared by the AirRacer
// multiplayer server and its clients.
//
// Every message is a flat JSON object carrying a "type" discriminator next to
// its type-specific fields. The kinds form a closed set: the dispatcher on the
// server and the adapter on the client both switch exhaustively over the
// constants below and drop anything else.
package protocol

import (
	"encoding/json"
	"fmt"
)

// DefaultPort is the well-known port the multiplayer server listens on.
// Clients derive their default server URL from the page host plus this port.
const DefaultPort = 3001

// Message kinds. Client-to-server kinds come first, server-to-client after.
const (
	KindCreateRoom = "create_room"
	KindJoinRoom   = "join_room"
	KindReady      = "ready"
	KindState      = "state"
	KindFinish     = "finish"

	KindRoomCreated          = "room_created"
	KindRoomJoined           = "room_joined"
	KindOpponentJoined       = "opponent_joined"
	KindCountdownStart       = "countdown_start"
	KindRaceStart            = "race_start"
	KindOpponentState        = "opponent_state"
	KindOpponentFinished     = "opponent_finished"
	KindRaceResult           = "race_result"
	KindOpponentDisconnected = "opponent_disconnected"
	KindError                = "error"
)

// Vector3 is a ship position in track space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a ship orientation.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// CreateRoom asks the server to allocate a new room with the sender as host.
type CreateRoom struct {
	Type string `json:"type"`
}

// JoinRoom asks the server to add the sender to an existing room.
type JoinRoom struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
}

// Ready marks the sender as loaded and willing to start.
type Ready struct {
	Type string `json:"type"`
}

// State is a live ship snapshot, relayed to the opponent while racing.
type State struct {
	Type       string     `json:"type"`
	Position   Vector3    `json:"position"`
	Quaternion Quaternion `json:"quaternion"`
	Speed      float64    `json:"speed"`
}

// Finish reports the sender's elapsed race time in milliseconds.
type Finish struct {
	Type string `json:"type"`
	Time int64  `json:"time"`
}

// RoomCreated confirms room allocation to the host.
type RoomCreated struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
	PlayerID int    `json:"playerId"`
}

// RoomJoined confirms a successful join to the guest.
type RoomJoined struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
	PlayerID int    `json:"playerId"`
}

// OpponentJoined tells the host a second player arrived.
type OpponentJoined struct {
	Type string `json:"type"`
}

// CountdownStart tells both players the countdown is running.
type CountdownStart struct {
	Type string `json:"type"`
}

// RaceStart carries the shared start instant, in Unix milliseconds, so both
// clients compute elapsed race time from the same server-issued value.
type RaceStart struct {
	Type      string `json:"type"`
	StartTime int64  `json:"startTime"`
}

// OpponentState mirrors State back out to the other player in the room.
type OpponentState struct {
	Type       string     `json:"type"`
	Position   Vector3    `json:"position"`
	Quaternion Quaternion `json:"quaternion"`
	Speed      float64    `json:"speed"`
}

// OpponentFinished tells a still-racing player their opponent's time.
type OpponentFinished struct {
	Type string `json:"type"`
	Time int64  `json:"time"`
}

// RaceResult is the adjudication sent to every remaining player.
// OpponentTime is omitted when no opponent time is known.
type RaceResult struct {
	Type         string `json:"type"`
	Winner       int    `json:"winner"`
	YourTime     int64  `json:"yourTime"`
	OpponentTime *int64 `json:"opponentTime,omitempty"`
}

// OpponentDisconnected tells the remaining player their opponent left.
type OpponentDisconnected struct {
	Type string `json:"type"`
}

// Error reports a domain failure to the requesting connection only.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Kind extracts the type discriminator from a raw message without decoding
// the rest of the payload.
func Kind(data []byte) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("decode message: %w", err)
	}
	if probe.Type == "" {
		return "", fmt.Errorf("message has no type")
	}
	return probe.Type, nil
}
