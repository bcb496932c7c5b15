package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"airracer/game/race"
	"airracer/protocol"
)

// startServer spins up a race service with a short countdown behind an
// httptest server and returns the ws:// URL.
func startServer(t *testing.T) string {
	t.Helper()
	svc := race.NewServiceWithCountdown(50 * time.Millisecond)
	handler := NewHandler(svc)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
}

// readKind reads frames until one of the wanted kind arrives and returns its
// raw bytes, failing the test after a second.
func readKind(t *testing.T, conn *websocket.Conn, kind string) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read while waiting for %q: %v", kind, err)
		}
		got, err := protocol.Kind(data)
		if err != nil {
			t.Fatalf("Server sent undecodable frame: %v", err)
		}
		if got == kind {
			return data
		}
	}
}

func TestFullRaceOverWebSocket(t *testing.T) {
	url := startServer(t)

	host := dial(t, url)
	guest := dial(t, url)

	// Create and join.
	sendJSON(t, host, protocol.CreateRoom{Type: protocol.KindCreateRoom})
	var created protocol.RoomCreated
	json.Unmarshal(readKind(t, host, protocol.KindRoomCreated), &created)
	if created.PlayerID != 1 || !race.ValidRoomCode(created.RoomCode) {
		t.Fatalf("Unexpected room_created: %+v", created)
	}

	sendJSON(t, guest, protocol.JoinRoom{Type: protocol.KindJoinRoom, RoomCode: created.RoomCode})
	var joined protocol.RoomJoined
	json.Unmarshal(readKind(t, guest, protocol.KindRoomJoined), &joined)
	if joined.PlayerID != 2 || joined.RoomCode != created.RoomCode {
		t.Fatalf("Unexpected room_joined: %+v", joined)
	}
	readKind(t, host, protocol.KindOpponentJoined)

	// Readiness handshake into the countdown and the shared start instant.
	sendJSON(t, host, protocol.Ready{Type: protocol.KindReady})
	sendJSON(t, guest, protocol.Ready{Type: protocol.KindReady})
	readKind(t, host, protocol.KindCountdownStart)
	readKind(t, guest, protocol.KindCountdownStart)

	var startHost, startGuest protocol.RaceStart
	json.Unmarshal(readKind(t, host, protocol.KindRaceStart), &startHost)
	json.Unmarshal(readKind(t, guest, protocol.KindRaceStart), &startGuest)
	if startHost.StartTime == 0 || startHost.StartTime != startGuest.StartTime {
		t.Fatalf("Expected one shared start instant, got %d and %d", startHost.StartTime, startGuest.StartTime)
	}

	// Live relay.
	sendJSON(t, host, protocol.State{
		Type:       protocol.KindState,
		Position:   protocol.Vector3{X: 10, Y: 0, Z: -4.25},
		Quaternion: protocol.Quaternion{W: 1},
		Speed:      333,
	})
	var relayed protocol.OpponentState
	json.Unmarshal(readKind(t, guest, protocol.KindOpponentState), &relayed)
	if relayed.Position.X != 10 || relayed.Position.Z != -4.25 || relayed.Speed != 333 {
		t.Fatalf("Relay corrupted the snapshot: %+v", relayed)
	}

	// Finish order and adjudication.
	sendJSON(t, host, protocol.Finish{Type: protocol.KindFinish, Time: 61500})
	var oppFinished protocol.OpponentFinished
	json.Unmarshal(readKind(t, guest, protocol.KindOpponentFinished), &oppFinished)
	if oppFinished.Time != 61500 {
		t.Fatalf("Expected opponent_finished 61500, got %d", oppFinished.Time)
	}

	sendJSON(t, guest, protocol.Finish{Type: protocol.KindFinish, Time: 64250})
	var resHost, resGuest protocol.RaceResult
	json.Unmarshal(readKind(t, host, protocol.KindRaceResult), &resHost)
	json.Unmarshal(readKind(t, guest, protocol.KindRaceResult), &resGuest)

	if resHost.Winner != 1 || resGuest.Winner != 1 {
		t.Errorf("Expected winner 1, got %d and %d", resHost.Winner, resGuest.Winner)
	}
	if resHost.YourTime != 61500 || resHost.OpponentTime == nil || *resHost.OpponentTime != 64250 {
		t.Errorf("Unexpected host result: %+v", resHost)
	}
	if resGuest.YourTime != 64250 || resGuest.OpponentTime == nil || *resGuest.OpponentTime != 61500 {
		t.Errorf("Unexpected guest result: %+v", resGuest)
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	url := startServer(t)
	conn := dial(t, url)

	// Garbage, a frame without a type, and an unknown kind: all dropped,
	// connection stays open and keeps working.
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"roomCode":"123456"}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"warp_drive"}`))

	sendJSON(t, conn, protocol.CreateRoom{Type: protocol.KindCreateRoom})
	var created protocol.RoomCreated
	json.Unmarshal(readKind(t, conn, protocol.KindRoomCreated), &created)
	if created.PlayerID != 1 {
		t.Fatalf("Connection should survive malformed frames, got %+v", created)
	}
}

func TestDisconnectDeletesEmptyRoom(t *testing.T) {
	svc := race.NewServiceWithCountdown(50 * time.Millisecond)
	server := httptest.NewServer(NewHandler(svc))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn := dial(t, url)
	sendJSON(t, conn, protocol.CreateRoom{Type: protocol.KindCreateRoom})
	readKind(t, conn, protocol.KindRoomCreated)

	if svc.RoomCount() != 1 {
		t.Fatalf("Expected 1 room, got %d", svc.RoomCount())
	}

	conn.Close()

	deadline := time.Now().Add(1 * time.Second)
	for svc.RoomCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if svc.RoomCount() != 0 {
		t.Error("Expected room deleted after last connection closed")
	}
}

func TestErrorRepliesGoToSenderOnly(t *testing.T) {
	url := startServer(t)

	host := dial(t, url)
	guest := dial(t, url)

	sendJSON(t, host, protocol.CreateRoom{Type: protocol.KindCreateRoom})
	readKind(t, host, protocol.KindRoomCreated)

	sendJSON(t, guest, protocol.JoinRoom{Type: protocol.KindJoinRoom, RoomCode: "000001"})
	var errMsg protocol.Error
	json.Unmarshal(readKind(t, guest, protocol.KindError), &errMsg)
	if errMsg.Message == "" {
		t.Error("Expected a human-readable reason")
	}

	// The host must see nothing from the failed join.
	host.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := host.ReadMessage(); err == nil {
		t.Error("Host should not receive anything for another player's failed join")
	}
}
