// Package client is the Go protocol adapter for the AirRacer multiplayer
// server. It mirrors the server's message vocabulary as imperative actions
// and named callbacks, independent of any rendering or input layer.
//
// Connect is the only blocking operation: it resolves once the transport is
// open and fails if the transport errors first. Every other action is a
// fire-and-forget send that silently does nothing while disconnected, and
// every unset callback is a silent no-op, so a presentation layer wires only
// the events it cares about.
//
// Usage:
//
//	c := client.New(client.Callbacks{
//		OnRoomCreated: func(code string) { showLobby(code) },
//		OnRaceStart:   func(start int64) { beginRace(start) },
//	})
//	if err := c.Connect(ctx, client.DefaultServerURL("192.168.1.10")); err != nil {
//		// surface to the lobby UI
//	}
//	c.CreateRoom()
package client
