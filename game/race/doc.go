// Package race implements the matchmaking and race-coordination core of the
// AirRacer multiplayer server.
//
// The package implements:
//   - Room registry keyed by 6-digit numeric codes
//   - Per-room lifecycle state machine (waiting, countdown, racing, finished)
//   - Readiness handshake and the synchronized 5.5 second countdown
//   - Best-effort live state relay between the two players of a room
//   - Finish-order adjudication and winner declaration
//
// Core Types:
//
// Service is the single entry point for every protocol operation. It owns the
// Registry and a connection-to-player index, and serializes all mutation
// behind one mutex so each inbound event is handled to completion before the
// next one runs. Room and Player are the registry's units of state.
//
// Transport Independence:
//
// The package never touches a socket. Callers hand it values implementing the
// Conn interface; the websocket transport adapts real connections to it and
// tests substitute in-memory fakes.
//
// Countdown:
//
// When both players are ready the Service arms a timer whose handle lives on
// the Room. The timer is stopped when the room is deleted or abandoned, and
// its callback re-checks under the lock that the very room it was armed for
// still exists under its code, is still counting down, and still has both
// players before starting the race. Lost races between Stop and an
// already-fired callback are therefore harmless, as is a freed code that was
// reissued to a new room while the stale timer was pending.
//
// State is monotonic: a room abandoned mid-countdown stays in countdown with
// its survivor and accepts no new joiners; it disappears when the survivor
// leaves.
//
// Usage:
//
//	svc := race.NewService()
//	svc.CreateRoom(conn)           // conn implements race.Conn
//	svc.JoinRoom(other, code)
//	svc.Ready(conn)
//	svc.Ready(other)               // countdown starts, race follows
package race
