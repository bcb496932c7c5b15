// Package mcp exposes the multiplayer server's ops surface over the Model
// Context Protocol.
//
// It is a thin client that proxies every tool call to the read-only REST API,
// so an MCP-capable assistant can inspect live rooms and server health during
// development without holding a websocket connection of its own. The tool set
// is intentionally read-only: all game state changes flow over the websocket
// protocol.
package mcp
