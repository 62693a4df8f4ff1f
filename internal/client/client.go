package client

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yousuf/builder-typegen/internal/config"
)

// McpClient wraps a connection to an upstream MCP server.
type McpClient struct {
	name    string
	session *mcp.ClientSession
	tools   []*mcp.Tool
}

// NewMcpClient creates a new MCP client based on the configuration
func NewMcpClient(ctx context.Context, name string, cfg config.McpServerConfig) (*McpClient, error) {
	var transport mcp.Transport

	switch cfg.Type {
	case "stdio":
		transport = createStdioTransport(cfg)
	case "http":
		transport = createHTTPTransport(cfg)
	case "sse":
		transport = createSSETransport(cfg)
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}

	return newMcpClient(ctx, name, transport)
}

func newMcpClient(ctx context.Context, name string, transport mcp.Transport) (*McpClient, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "builder-typegen-client",
		Version: "1.0.0",
	}, &mcp.ClientOptions{})

	session, err := client.Connect(ctx, transport, &mcp.ClientSessionOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	toolsResult, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	return &McpClient{
		name:    name,
		session: session,
		tools:   toolsResult.Tools,
	}, nil
}

// createStdioTransport creates a stdio transport
func createStdioTransport(cfg config.McpServerConfig) mcp.Transport {
	cmd := exec.Command(cfg.Command, cfg.Args...)

	if cfg.Cwd != "" {
		cmd.Dir = cfg.Cwd
	}

	if len(cfg.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	return &mcp.CommandTransport{Command: cmd}
}

// headerRoundTripper adds the configured headers to every upstream request.
type headerRoundTripper struct {
	headers map[string]string
	next    http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface
func (rt *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(rt.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range rt.headers {
			req.Header.Set(k, v)
		}
	}
	return rt.next.RoundTrip(req)
}

func httpClient(cfg config.McpServerConfig) *http.Client {
	return &http.Client{
		Transport: &headerRoundTripper{
			headers: cfg.Headers,
			next:    http.DefaultTransport,
		},
	}
}

func createHTTPTransport(cfg config.McpServerConfig) mcp.Transport {
	return &mcp.StreamableClientTransport{
		Endpoint:   cfg.URL,
		HTTPClient: httpClient(cfg),
		MaxRetries: 0,
	}
}

func createSSETransport(cfg config.McpServerConfig) mcp.Transport {
	return &mcp.SSEClientTransport{
		Endpoint:   cfg.URL,
		HTTPClient: httpClient(cfg),
	}
}

// CallTool calls a tool on this MCP client
func (c *McpClient) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcp.CallToolResult, error) {
	return c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
}

// HasTool reports whether the server advertised toolName when it connected.
func (c *McpClient) HasTool(toolName string) bool {
	for _, tool := range c.tools {
		if tool.Name == toolName {
			return true
		}
	}
	return false
}

// Tools returns the list of available tools
func (c *McpClient) Tools() []*mcp.Tool {
	return c.tools
}

// Name returns the client name
func (c *McpClient) Name() string {
	return c.name
}

// Close closes the client connection
func (c *McpClient) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}
