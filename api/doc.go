// Package api provides the HTTP surface of the AirRacer multiplayer server:
// the /ws WebSocket endpoint where the actual protocol runs, and a small
// read-only REST API for operational visibility.
//
// All game state changes flow over the WebSocket protocol; the REST API never
// mutates anything. It exists so operators (and the MCP tools) can inspect
// live rooms without joining one.
//
// Routes:
//
//	GET /api/rooms          list live rooms
//	GET /api/rooms/{code}   inspect one room
//	GET /api/health         liveness probe
//	GET /api/info           server version and websocket URL hint
//	    /ws                 WebSocket upgrade
package api
