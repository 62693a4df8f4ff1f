package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yousuf/builder-typegen/internal/codegen"
	"github.com/yousuf/builder-typegen/internal/config"
)

const modelsJSON = `{"models": [
  {"id": "a1", "name": "author", "fields": [{"name": "bio", "type": "text"}]},
  {"id": "p1", "name": "blog-post", "fields": [
    {"name": "author", "type": "reference", "modelId": "a1"}
  ]}
]}`

type noArgs struct{}

// connectFake starts an in-memory upstream server exposing a list_models tool
// and registers a client for it on a new hub.
func connectFake(t *testing.T, handler mcp.ToolHandlerFor[noArgs, any]) *McpClientHub {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "fake-builder", Version: "0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "list_models", Description: "List models"}, handler)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	c, err := newMcpClient(ctx, "builder", clientTransport)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	hub := NewMcpClientHub(logger)
	hub.Add(c)
	t.Cleanup(func() { hub.Close() })
	return hub
}

func textResult(text string) mcp.ToolHandlerFor[noArgs, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ noArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}
}

func TestFetchModelsFromText(t *testing.T) {
	hub := connectFake(t, textResult(modelsJSON))

	models, err := hub.FetchModels(context.Background(), "builder", "list_models")
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "author", models[0].Name)
	assert.Equal(t, "a1", models[1].Fields[0].ModelID)
}

func TestFetchModelsToolError(t *testing.T) {
	hub := connectFake(t, func(ctx context.Context, req *mcp.CallToolRequest, _ noArgs) (*mcp.CallToolResult, any, error) {
		return nil, nil, errors.New("space not found")
	})

	_, err := hub.FetchModels(context.Background(), "builder", "list_models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "space not found")
}

func TestFetchModelsUnrecognizedPayload(t *testing.T) {
	hub := connectFake(t, textResult(`"nope"`))

	_, err := hub.FetchModels(context.Background(), "builder", "list_models")
	assert.ErrorIs(t, err, codegen.ErrUnrecognizedModels)
}

func TestFetchModelsLookupErrors(t *testing.T) {
	hub := connectFake(t, textResult(modelsJSON))
	ctx := context.Background()

	_, err := hub.FetchModels(ctx, "missing", "list_models")
	assert.ErrorIs(t, err, ErrServerNotFound)

	_, err = hub.FetchModels(ctx, "builder", "get_models")
	assert.ErrorIs(t, err, ErrToolNotFound)

	_, err = hub.CallTool(ctx, "missing", "list_models", nil)
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestServersAndTools(t *testing.T) {
	hub := connectFake(t, textResult(modelsJSON))

	assert.Equal(t, []string{"builder"}, hub.Servers())

	tools, ok := hub.ServerTools("builder")
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "list_models", tools[0].Name)

	_, ok = hub.ServerTools("other")
	assert.False(t, ok)

	require.NoError(t, hub.Close())
	assert.Empty(t, hub.Servers())
}

func TestModelsFromStructuredContent(t *testing.T) {
	models, err := modelsFromResult(&mcp.CallToolResult{
		StructuredContent: map[string]any{
			"results": []any{
				map[string]any{"id": "x", "name": "page", "fields": []any{}},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "page", models[0].Name)

	_, err = modelsFromResult(&mcp.CallToolResult{})
	assert.Error(t, err)

	_, err = modelsFromResult(&mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "boom"}},
	})
	assert.ErrorContains(t, err, "boom")
}

func TestHeaderRoundTripper(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := httpClient(config.McpServerConfig{Headers: map[string]string{
		"Authorization": "Bearer secret",
		"X-Space":       "acme",
	}})
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Equal(t, "acme", got.Get("X-Space"))
}

func TestNewMcpClientRejectsUnknownTransport(t *testing.T) {
	_, err := NewMcpClient(context.Background(), "x", config.McpServerConfig{Type: "grpc"})
	assert.ErrorContains(t, err, "unsupported transport type")
}
