package codegen

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yousuf/builder-typegen/internal/strutil"
)

const (
	// InterfacePrefix is prepended to interface names when Options.InterfacePrefix is set.
	InterfacePrefix = "I"

	// placeholderName is used when a model name has no alphanumeric characters.
	placeholderName = "model"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ErrMissingModelName is returned for models without a usable name.
var ErrMissingModelName = errors.New("model name is required")

var generatedOnLine = regexp.MustCompile(`(?m)^(// Generated on: ).*$`)

// StripTimestamp blanks the generation timestamp so that two generations of
// the same input can be compared byte for byte.
func StripTimestamp(content string) string {
	return generatedOnLine.ReplaceAllString(content, "${1}")
}

// Options configures a TypeScriptGenerator.
type Options struct {
	// OutputDir is joined with the model slug to build GeneratedInterface.FilePath.
	OutputDir string
	// InterfacePrefix prepends "I" to every interface name.
	InterfacePrefix bool
	// ReferenceImport is the module exporting BuilderReference.
	ReferenceImport string
	// GeneratedImport is the barrel module re-exporting generated interfaces.
	GeneratedImport string
	// Concurrency limits GenerateAll workers.
	Concurrency int
	Logger      logrus.FieldLogger
	Now         func() time.Time
}

// DefaultOptions returns the settings used by the CLI and the MCP server.
func DefaultOptions() Options {
	return Options{
		OutputDir:       filepath.Join("src", "types", "generated"),
		InterfacePrefix: true,
		ReferenceImport: "@/types",
		GeneratedImport: "@/types/generated",
		Concurrency:     4,
	}
}

// TypeScriptGenerator generates TypeScript content interfaces from Builder.io models
type TypeScriptGenerator struct {
	opts Options

	mu    sync.RWMutex
	index ModelIndex
}

// NewTypeScriptGenerator creates a new TypeScript generator
func NewTypeScriptGenerator(opts Options) *TypeScriptGenerator {
	defaults := DefaultOptions()
	if opts.ReferenceImport == "" {
		opts.ReferenceImport = defaults.ReferenceImport
	}
	if opts.GeneratedImport == "" {
		opts.GeneratedImport = defaults.GeneratedImport
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &TypeScriptGenerator{
		opts:  opts,
		index: ModelIndex{},
	}
}

// SetModelIndex replaces the id to name mapping used to resolve references.
func (g *TypeScriptGenerator) SetModelIndex(refs []ModelRef) {
	index := NewModelIndex(refs)

	g.mu.Lock()
	g.index = index
	g.mu.Unlock()
}

// ClearModelIndex drops the id to name mapping.
func (g *TypeScriptGenerator) ClearModelIndex() {
	g.mu.Lock()
	g.index = ModelIndex{}
	g.mu.Unlock()
}

// ModelIndex returns the current mapping. The returned map is shared and
// must not be modified.
func (g *TypeScriptGenerator) ModelIndex() ModelIndex {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.index
}

// InterfaceName converts a raw model name to its interface name, e.g.
// "hvac-unit-series" to "IHVACUnitSeries".
func (g *TypeScriptGenerator) InterfaceName(modelName string) string {
	name := strutil.ToPascalCase(modelName, strutil.DefaultAcronyms...)
	if name == "" {
		name = strutil.ToPascalCase(placeholderName)
	}
	if g.opts.InterfacePrefix {
		return InterfacePrefix + name
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "_" + name
	}
	return name
}

// FileName returns the slug file name for a raw model name.
func (g *TypeScriptGenerator) FileName(modelName string) string {
	slug := strutil.Slug(modelName)
	if slug == "" {
		slug = placeholderName
	}
	return slug + ".ts"
}

// GenerateInterface generates the Content and Data interfaces for a model
// using the current model index.
func (g *TypeScriptGenerator) GenerateInterface(model Model) (*GeneratedInterface, error) {
	return g.GenerateInterfaceWithIndex(model, g.ModelIndex())
}

// GenerateInterfaceWithIndex generates the interfaces for a model, resolving
// id based references through index.
func (g *TypeScriptGenerator) GenerateInterfaceWithIndex(model Model, index ModelIndex) (gi *GeneratedInterface, err error) {
	if strings.TrimSpace(model.Name) == "" {
		return nil, fmt.Errorf("model %q: %w", model.ID, ErrMissingModelName)
	}

	defer func() {
		if p := recover(); p != nil {
			gi = nil
			err = fmt.Errorf("failed to generate interface for model %q: %v", model.Name, p)
		}
	}()

	resolver := &fieldResolver{
		index:         index,
		interfaceName: g.InterfaceName,
		log:           g.opts.Logger,
		modelName:     model.Name,
	}

	interfaceName := g.InterfaceName(model.Name)
	fields := FilterFields(model.Fields)

	properties := make([]TSProperty, 0, len(fields))
	for _, f := range fields {
		properties = append(properties, TSProperty{
			Name:        f.Name,
			Type:        resolver.resolve(f, 0),
			IsOptional:  !f.Required,
			Description: f.HelperText,
		})
	}

	// Referenced interfaces come from the barrel; the model's own Content type is local.
	var imports []string
	seen := map[string]bool{interfaceName: true}
	for _, name := range resolver.referencedModels(fields) {
		ref := g.InterfaceName(name)
		if seen[ref] {
			continue
		}
		seen[ref] = true
		imports = append(imports, ref+"Content")
	}

	generatedAt := g.opts.Now().UTC()
	file := &TSFile{
		ModelName:     model.Name,
		InterfaceName: interfaceName,
		GeneratedAt:   generatedAt,
		Imports:       imports,
		Properties:    properties,
	}

	return &GeneratedInterface{
		ModelID:       model.ID,
		ModelName:     model.Name,
		InterfaceName: interfaceName,
		Content:       g.renderFile(file),
		FilePath:      filepath.Join(g.opts.OutputDir, g.FileName(model.Name)),
		GeneratedAt:   generatedAt,
	}, nil
}

// TSFile is the content of one generated model file before rendering.
type TSFile struct {
	ModelName     string
	InterfaceName string
	GeneratedAt   time.Time
	Imports       []string // Referenced Content interfaces
	Properties    []TSProperty
}

// renderFile renders the complete TypeScript file
func (g *TypeScriptGenerator) renderFile(file *TSFile) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "// Auto-generated TypeScript interfaces for %s content\n", commentLine(file.ModelName))
	fmt.Fprintf(&sb, "// Generated on: %s\n\n", file.GeneratedAt.Format(timestampLayout))

	fmt.Fprintf(&sb, "import type { BuilderReference } from '%s';\n", g.opts.ReferenceImport)
	if len(file.Imports) > 0 {
		fmt.Fprintf(&sb, "import type { %s } from '%s';\n", strings.Join(file.Imports, ", "), g.opts.GeneratedImport)
	}
	sb.WriteString("\n")

	sb.WriteString("// Content entry structure (full response from Content API)\n")
	fmt.Fprintf(&sb, "export interface %sContent {\n", file.InterfaceName)
	sb.WriteString("  id: string;\n")
	sb.WriteString("  name: string;\n")
	sb.WriteString("  published: 'published' | 'draft' | 'archived';\n")
	sb.WriteString("  createdDate: number;\n")
	sb.WriteString("  lastUpdated?: number;\n")
	sb.WriteString("  modelId: string;\n")
	sb.WriteString("  rev?: string;\n")
	fmt.Fprintf(&sb, "  data: %sData;\n", file.InterfaceName)
	sb.WriteString("}\n\n")

	sb.WriteString("// Data structure (nested under 'data' property in content)\n")
	fmt.Fprintf(&sb, "export interface %sData {\n", file.InterfaceName)
	for _, prop := range file.Properties {
		if prop.Description != "" {
			fmt.Fprintf(&sb, "  /** %s */\n", sanitizeComment(commentLine(prop.Description)))
		}
		fmt.Fprintf(&sb, "  %s;\n", propertySignature(prop))
	}
	sb.WriteString("}\n")

	return sb.String()
}

// GenerateIndexFile generates an index.ts that re-exports every generated interface pair
func (g *TypeScriptGenerator) GenerateIndexFile(interfaces []*GeneratedInterface) string {
	var sb strings.Builder

	sb.WriteString("// Auto-generated index file for Builder.io content interfaces\n")
	fmt.Fprintf(&sb, "// Generated on: %s\n\n", g.opts.Now().UTC().Format(timestampLayout))

	for _, gi := range interfaces {
		module := strings.TrimSuffix(filepath.Base(gi.FilePath), ".ts")
		fmt.Fprintf(&sb, "export type { %s, %s } from './%s';\n", gi.ContentType(), gi.DataType(), module)
	}

	return sb.String()
}

// commentLine keeps text on a single line so it cannot end a line comment early.
func commentLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeComment escapes or removes problematic content from JSDoc comments
func sanitizeComment(comment string) string {
	// Replace */ with *\/ to avoid breaking JSDoc comments
	comment = strings.ReplaceAll(comment, "*/", `*\/`)

	// Replace /* with /\* to avoid nested comments
	comment = strings.ReplaceAll(comment, "/*", `/\*`)

	return comment
}
