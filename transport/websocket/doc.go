// Package websocket provides the WebSocket transport for the AirRacer
// multiplayer server.
//
// The package implements:
//   - Connection upgrade and lifecycle management
//   - Per-connection read/write pumps with ping/pong keepalive
//   - Inbound message dispatch to the race service
//   - Transport-level disconnect propagation
//
// Architecture:
//
// Each accepted connection gets a dedicated reader and writer goroutine. The
// reader decodes the "type" discriminator of every frame and routes it to the
// matching race.Service operation; the writer drains a buffered send channel
// so race handlers never block on a slow peer. A peer that cannot keep up has
// its sends fail, which the race layer logs and tolerates.
//
// Message Protocol:
//
// One JSON document per text frame, in both directions, using the vocabulary
// of the protocol package. Frames that fail to decode are logged and dropped;
// the connection stays open.
//
// Connection Lifecycle:
//
// 1. Client connects to /ws and is upgraded
// 2. Messages flow through dispatch into the race service
// 3. Read error or close triggers race.Service.Disconnect and cleanup
package websocket
