package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/yousuf/builder-typegen/internal/codegen"
	"github.com/yousuf/builder-typegen/internal/output"
	"github.com/yousuf/builder-typegen/internal/session"
)

// SetModelIndexArgs represents the arguments for the set_model_index tool
type SetModelIndexArgs struct {
	Models []codegen.ModelRef `json:"models" jsonschema:"Model id and name pairs used to resolve reference fields that point at a modelId"`
}

// GenerateTypesArgs represents the arguments for the generate_types tool
type GenerateTypesArgs struct {
	Models []map[string]any `json:"models,omitempty" jsonschema:"Builder.io model schemas. When omitted, models are fetched from the configured upstream server."`
	Server string           `json:"server,omitempty" jsonschema:"Upstream MCP server to fetch models from (defaults to modelSource.server)"`
	Write  bool             `json:"write,omitempty" jsonschema:"Write the generated files, index.ts and the manifest to the output directory (default: false)"`
}

// GenerateForModelArgs represents the arguments for the generate_types_for_model tool
type GenerateForModelArgs struct {
	Model map[string]any `json:"model" jsonschema:"Required. A single Builder.io model schema with name and fields"`
}

// ListGeneratedArgs represents the arguments for the list_generated tool
type ListGeneratedArgs struct {
	WithDetails bool `json:"withDetails,omitempty" jsonschema:"Include interface and model names (default: false)"`
}

// ReadGeneratedArgs represents the arguments for the read_generated tool
type ReadGeneratedArgs struct {
	Path string `json:"path" jsonschema:"Required. Generated file name, e.g. 'blog-post.ts' or 'index.ts'"`
}

type emptyArgs struct{}

// generateSummary is the JSON body returned by generate_types.
type generateSummary struct {
	Generated []codegen.InventoryEntry `json:"generated"`
	Failures  []failureSummary         `json:"failures,omitempty"`
	Written   []string                 `json:"written,omitempty"`
}

type failureSummary struct {
	ModelID   string `json:"modelId,omitempty"`
	ModelName string `json:"modelName"`
	Error     string `json:"error"`
}

const instructions = `
Builder.io TypeScript Interface Generator

Converts Builder.io model schemas into TypeScript interfaces. Every model
produces a <Name>Content interface (the Content API entry envelope) and a
<Name>Data interface (the fields nested under 'data').

Available Tools:
1. "set_model_index" - Register model id/name pairs so reference fields with a modelId resolve
2. "clear_model_index" - Drop the registered model index
3. "generate_types" - Generate interfaces for many models (inline or fetched upstream)
4. "generate_types_for_model" - Generate the interfaces for one model
5. "list_generated" - List the files generated in this session
6. "read_generated" - Read a generated file, including index.ts

Recommended Workflow:
1. Call generate_types with the models (or with no arguments to use the upstream server)
2. Call list_generated to see the files
3. Call read_generated({ path: "blog-post.ts" }) to read one

Notes:
- Built-in fields (id, name, published, ...) never appear in Data interfaces
- Unknown field types become 'any' and are logged
- A model that fails does not stop the others
`

// NewMcpServer creates and configures the MCP server
func NewMcpServer(sessionMgr *session.Manager, log logrus.FieldLogger) *mcp.Server {
	if log == nil {
		log = logrus.StandardLogger()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "builder-typegen",
		Version: "1.0.0",
	}, &mcp.ServerOptions{
		Instructions: instructions,
	})

	server.AddReceivingMiddleware(createSessionInjectionMiddleware(sessionMgr))
	server.AddReceivingMiddleware(createLoggingMiddleware(log))

	h := &handlers{mgr: sessionMgr, log: log}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_model_index",
		Description: "Replace the model id to name index used to resolve reference fields in this session.",
	}, h.setModelIndex)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_model_index",
		Description: "Clear the model index of this session. Reference fields then resolve only through their model name.",
	}, h.clearModelIndex)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_types",
		Description: "Generate TypeScript Content and Data interfaces for a set of Builder.io models. Returns a JSON summary of generated files and per-model failures.",
	}, h.generateTypes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_types_for_model",
		Description: "Generate the TypeScript interfaces for a single Builder.io model and return the file content.",
	}, h.generateForModel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_generated",
		Description: "List the TypeScript files generated in this session.",
	}, h.listGenerated)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_generated",
		Description: "Read a TypeScript file generated in this session (e.g., 'blog-post.ts', 'index.ts').",
	}, h.readGenerated)

	return server
}

type handlers struct {
	mgr *session.Manager
	log logrus.FieldLogger
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func (h *handlers) setModelIndex(ctx context.Context, req *mcp.CallToolRequest, args SetModelIndexArgs) (*mcp.CallToolResult, any, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	sessionCtx.Generator.SetModelIndex(args.Models)
	n := len(sessionCtx.Generator.ModelIndex())
	return textResult(fmt.Sprintf("Model index set with %d entries", n)), nil, nil
}

func (h *handlers) clearModelIndex(ctx context.Context, req *mcp.CallToolRequest, _ emptyArgs) (*mcp.CallToolResult, any, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	sessionCtx.Generator.ClearModelIndex()
	return textResult("Model index cleared"), nil, nil
}

func (h *handlers) generateTypes(ctx context.Context, req *mcp.CallToolRequest, args GenerateTypesArgs) (*mcp.CallToolResult, any, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	models, err := h.resolveModels(ctx, args)
	if err != nil {
		return nil, nil, err
	}

	// Without an explicit index, references resolve against the batch itself.
	index := sessionCtx.Generator.ModelIndex()
	if len(index) == 0 {
		index = codegen.NewModelIndex(codegen.RefsFromModels(models))
	}

	batch, err := sessionCtx.Generator.GenerateAllWithIndex(ctx, models, index)
	if err != nil {
		return nil, nil, err
	}
	sessionCtx.StoreBatch(batch)

	summary := generateSummary{Generated: batch.Inventory()}
	for _, f := range batch.Failures {
		summary.Failures = append(summary.Failures, failureSummary{
			ModelID:   f.ModelID,
			ModelName: f.ModelName,
			Error:     f.Err.Error(),
		})
	}

	if args.Write {
		w := output.NewWriter(h.mgr.Config().OutputDir, h.log)
		summary.Written, err = w.WriteBatch(batch)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to write generated files: %w", err)
		}
	}

	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return textResult(string(body)), nil, nil
}

func (h *handlers) resolveModels(ctx context.Context, args GenerateTypesArgs) ([]codegen.Model, error) {
	if len(args.Models) > 0 {
		data, err := json.Marshal(args.Models)
		if err != nil {
			return nil, fmt.Errorf("failed to encode models: %w", err)
		}
		return codegen.ParseModels(data)
	}

	serverName := args.Server
	if serverName == "" {
		serverName = h.mgr.Config().ModelSource.Server
	}
	if serverName == "" || h.mgr.Hub() == nil {
		return nil, errors.New("no models given and no upstream model server configured")
	}

	return h.mgr.Hub().FetchModels(ctx, serverName, h.mgr.Config().ModelsTool())
}

func (h *handlers) generateForModel(ctx context.Context, req *mcp.CallToolRequest, args GenerateForModelArgs) (*mcp.CallToolResult, any, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	data, err := json.Marshal(args.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode model: %w", err)
	}
	models, err := codegen.ParseModels(data)
	if err != nil {
		return nil, nil, err
	}
	if len(models) != 1 {
		return nil, nil, fmt.Errorf("expected exactly one model, got %d", len(models))
	}

	gi, err := sessionCtx.Generator.GenerateInterface(models[0])
	if err != nil {
		return nil, nil, err
	}
	sessionCtx.StoreInterface(gi)

	return textResult(gi.Content), nil, nil
}

func (h *handlers) listGenerated(ctx context.Context, req *mcp.CallToolRequest, args ListGeneratedArgs) (*mcp.CallToolResult, any, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	generated := sessionCtx.Generated()
	if len(generated) == 0 {
		return textResult("No files generated in this session"), nil, nil
	}

	var sb strings.Builder
	sb.WriteString("/\n")
	for _, gi := range generated {
		name := filepath.Base(gi.FilePath)
		if args.WithDetails {
			fmt.Fprintf(&sb, "├── %s - %s, %s (model %q)\n", name, gi.ContentType(), gi.DataType(), gi.ModelName)
		} else {
			fmt.Fprintf(&sb, "├── %s\n", name)
		}
	}
	sb.WriteString("└── index.ts\n")

	return textResult(sb.String()), nil, nil
}

func (h *handlers) readGenerated(ctx context.Context, req *mcp.CallToolRequest, args ReadGeneratedArgs) (*mcp.CallToolResult, any, error) {
	sessionCtx, err := getSessionFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	content, ok := sessionCtx.ReadFile(args.Path)
	if !ok {
		return nil, nil, fmt.Errorf("file '%s' not found; call list_generated to see available files", args.Path)
	}
	return textResult(content), nil, nil
}
