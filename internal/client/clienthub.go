package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/yousuf/builder-typegen/internal/codegen"
	"github.com/yousuf/builder-typegen/internal/config"
)

var (
	// ErrServerNotFound is returned when a server name is not connected.
	ErrServerNotFound = errors.New("server not found")
	// ErrToolNotFound is returned when a server does not advertise the requested tool.
	ErrToolNotFound = errors.New("tool not found")
)

// McpClientHub manages the connections to upstream MCP servers that serve
// Builder.io model schemas.
type McpClientHub struct {
	clients map[string]*McpClient
	mu      sync.RWMutex
	log     logrus.FieldLogger
}

// NewMcpClientHub creates a new McpClientHub
func NewMcpClientHub(log logrus.FieldLogger) *McpClientHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &McpClientHub{
		clients: make(map[string]*McpClient),
		log:     log,
	}
}

// Connect establishes connections to all configured MCP servers
func (ch *McpClientHub) Connect(ctx context.Context, cfg *config.Config) error {
	for name, serverCfg := range cfg.McpServers {
		client, err := NewMcpClient(ctx, name, serverCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to server %q: %w", name, err)
		}
		ch.Add(client)
		ch.log.WithField("server", name).Infof("Connected to MCP server (%d tools)", len(client.Tools()))
	}
	return nil
}

// Add registers a connected client, replacing any client with the same name.
func (ch *McpClientHub) Add(client *McpClient) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if old, ok := ch.clients[client.Name()]; ok {
		old.Close()
	}
	ch.clients[client.Name()] = client
}

func (ch *McpClientHub) client(serverName string) (*McpClient, error) {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	client, exists := ch.clients[serverName]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrServerNotFound, serverName)
	}
	return client, nil
}

// CallTool calls a tool on a specific MCP server
func (ch *McpClientHub) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	client, err := ch.client(serverName)
	if err != nil {
		return nil, err
	}
	return client.CallTool(ctx, toolName, args)
}

// Servers returns the connected server names, sorted.
func (ch *McpClientHub) Servers() []string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	names := make([]string, 0, len(ch.clients))
	for name := range ch.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServerTools returns tools for a specific server
func (ch *McpClientHub) ServerTools(serverName string) ([]*mcp.Tool, bool) {
	client, err := ch.client(serverName)
	if err != nil {
		return nil, false
	}
	return client.Tools(), true
}

// FetchModels calls toolName on serverName and decodes the Builder.io models
// it returns. Structured content is preferred over text content.
func (ch *McpClientHub) FetchModels(ctx context.Context, serverName, toolName string) ([]codegen.Model, error) {
	client, err := ch.client(serverName)
	if err != nil {
		return nil, err
	}
	if !client.HasTool(toolName) {
		return nil, fmt.Errorf("%w: %q on server %q", ErrToolNotFound, toolName, serverName)
	}

	result, err := client.CallTool(ctx, toolName, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %q: %w", toolName, serverName, err)
	}

	models, err := modelsFromResult(result)
	if err != nil {
		return nil, fmt.Errorf("server %q: %w", serverName, err)
	}

	ch.log.WithFields(logrus.Fields{
		"server": serverName,
		"tool":   toolName,
		"models": len(models),
	}).Info("Fetched models")

	return models, nil
}

func modelsFromResult(result *mcp.CallToolResult) ([]codegen.Model, error) {
	text := resultText(result)
	if result.IsError {
		return nil, fmt.Errorf("tool returned an error: %s", text)
	}

	if result.StructuredContent != nil {
		data, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return nil, fmt.Errorf("failed to encode structured content: %w", err)
		}
		return codegen.ParseModels(data)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("tool returned no content")
	}
	return codegen.ParseModels([]byte(text))
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Close closes all client connections
func (ch *McpClientHub) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	var errs []error
	for name, client := range ch.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close client %q: %w", name, err))
		}
	}
	ch.clients = make(map[string]*McpClient)

	return errors.Join(errs...)
}
