package mcp

import (
	"context"
	"encoding/json"
)

const (
	ProtocolVersion   = "2024-11-05"
	defaultServerName = "super-secret-server"
	serverVersion     = "1.0.0"
)

// ServerInfo represents server information.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams represents the parameters for initializing the MCP server.
type InitializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

// InitializeResult represents the result of server initialization.
type InitializeResult struct {
	ServerInfo      ServerInfo   `json:"serverInfo"`
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
}

// Capabilities advertises every registered tool, keyed by name.
type Capabilities struct {
	Tools map[string]Tool `json:"tools"`
}

// ToolHandler runs a tool with the caller's raw arguments. The returned
// string becomes the single text content item of the result.
type ToolHandler func(ctx context.Context, arguments json.RawMessage) (string, error)

// Tool is the wire form of a registered tool.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolResultContent represents the content returned by a tool.
type ToolResultContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolParams represents parameters for calling a tool.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// CallToolResult represents the result of calling a tool.
type CallToolResult struct {
	Content []ToolResultContent `json:"content"`
}

// ListToolsResult represents the result of listing available tools.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}
