package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"airracer/game/race"
)

// Client is a thin MCP client that proxies to the REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API.
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools.
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"AirRacer Multiplayer Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`AirRacer Multiplayer Server - MCP Interface

Read-only operational tools for the two-player LAN racing relay. Players pair
up under 6-digit room codes over a websocket protocol; these tools inspect
that state through the REST API.

AVAILABLE TOOLS:
- list_rooms: List all live rooms with their state and player slots
- get_room: Inspect one room by its 6-digit code
- server_status: Server health, version, and room count

Room states progress waiting -> countdown -> racing -> finished and never move
backwards. A room disappears the moment its last player disconnects.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools.
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all live rooms with their lifecycle state and players",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Inspect a single room by its 6-digit code",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "6-digit room code",
				},
			},
			Required: []string{"code"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_status",
		Description: "Server health, version, and live room count",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStatus)
}

// GetMCPServer returns the underlying MCP server for serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall performs one REST request against the server.
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Tool handlers

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int             `json:"count"`
		Rooms []race.RoomInfo `json:"rooms"`
	}

	if err := c.apiCall("GET", "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Rooms (%d):\n\n", response.Count)
	for _, room := range response.Rooms {
		result += fmt.Sprintf("- %s [%s] %d/%d players\n",
			room.Code, room.State, len(room.Players), race.MaxPlayers)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	code, _ := args["code"].(string)
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	var room race.RoomInfo
	if err := c.apiCall("GET", "/api/rooms/"+code, nil, &room); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Room %s [%s]\n", room.Code, room.State)
	if room.StartTime != 0 {
		result += fmt.Sprintf("Started at: %s\n", time.UnixMilli(room.StartTime).Format(time.RFC3339))
	}
	for _, p := range room.Players {
		line := fmt.Sprintf("- player %d: ready=%v", p.ID, p.Ready)
		if p.Finished {
			line += fmt.Sprintf(" finished in %dms", p.FinishTime)
		}
		result += line + "\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health map[string]string
	if err := c.apiCall("GET", "/api/health", nil, &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Rooms   int    `json:"rooms"`
	}
	if err := c.apiCall("GET", "/api/info", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s v%s\nStatus: %s\nLive rooms: %d\n",
		info.Name, info.Version, health["status"], info.Rooms)
	return mcp.NewToolResultText(result), nil
}
