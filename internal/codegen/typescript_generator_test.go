package codegen

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hexops/autogold/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 13, 11, 1, 54, 231000000, time.UTC)

func newTestGenerator(t *testing.T, mutate func(*Options)) (*TypeScriptGenerator, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	opts := DefaultOptions()
	opts.OutputDir = "out"
	opts.Logger = logger
	opts.Now = func() time.Time { return fixedNow }
	if mutate != nil {
		mutate(&opts)
	}
	return NewTypeScriptGenerator(opts), hook
}

// dataSection returns the body of the Data interface.
func dataSection(t *testing.T, content, interfaceName string) string {
	t.Helper()

	_, after, ok := strings.Cut(content, "export interface "+interfaceName+"Data {\n")
	require.True(t, ok, "missing Data interface in:\n%s", content)
	body, _, ok := strings.Cut(after, "}\n")
	require.True(t, ok)
	return body
}

const blogPostGolden = `// Auto-generated TypeScript interfaces for blog-post content
// Generated on: 2025-06-13T11:01:54.231Z

import type { BuilderReference } from '@/types';
import type { IAuthorContent } from '@/types/generated';

// Content entry structure (full response from Content API)
export interface IBlogPostContent {
  id: string;
  name: string;
  published: 'published' | 'draft' | 'archived';
  createdDate: number;
  lastUpdated?: number;
  modelId: string;
  rev?: string;
  data: IBlogPostData;
}

// Data structure (nested under 'data' property in content)
export interface IBlogPostData {
  /** Post title */
  title: string;
  status?: "draft" | "live";
  author?: BuilderReference<IAuthorContent>;
  tags?: Array<{label: string; weight?: number}>;
  seo?: {"meta-title"?: string};
  body?: any;
}
`

func blogPostModel() Model {
	return Model{
		ID:   "b1",
		Name: "blog-post",
		Fields: []Field{
			{Name: "id", Type: "text"},
			{Name: "title", Type: "text", Required: true, HelperText: "Post title"},
			{Name: "status", Type: "text", Enum: []string{"draft", "live"}},
			{Name: "author", Type: "reference", ModelID: "m1"},
			{Name: "tags", Type: "list", SubFields: []Field{
				{Name: "label", Type: "text", Required: true},
				{Name: "weight", Type: "number"},
			}},
			{Name: "seo", Type: "object", SubFields: []Field{
				{Name: "meta-title", Type: "text"},
			}},
			{Name: "body", Type: "blocks"},
		},
	}
}

func TestGenerateInterface(t *testing.T) {
	g, hook := newTestGenerator(t, nil)
	g.SetModelIndex([]ModelRef{{ID: "m1", Name: "author"}})

	gi, err := g.GenerateInterface(blogPostModel())
	require.NoError(t, err)

	autogold.Expect(blogPostGolden).Equal(t, gi.Content)
	assert.Equal(t, "IBlogPost", gi.InterfaceName)
	assert.Equal(t, "IBlogPostContent", gi.ContentType())
	assert.Equal(t, "IBlogPostData", gi.DataType())
	assert.Equal(t, filepath.Join("out", "blog-post.ts"), gi.FilePath)
	assert.Equal(t, "b1", gi.ModelID)
	assert.Equal(t, fixedNow, gi.GeneratedAt)
	assert.Empty(t, hook.AllEntries())
}

func TestGenerateInterfaceIsDeterministic(t *testing.T) {
	calls := 0
	g, _ := newTestGenerator(t, func(o *Options) {
		o.Now = func() time.Time {
			calls++
			return fixedNow.Add(time.Duration(calls) * time.Hour)
		}
	})
	g.SetModelIndex([]ModelRef{{ID: "m1", Name: "author"}})

	first, err := g.GenerateInterface(blogPostModel())
	require.NoError(t, err)
	second, err := g.GenerateInterface(blogPostModel())
	require.NoError(t, err)

	assert.NotEqual(t, first.Content, second.Content)
	assert.Equal(t, StripTimestamp(first.Content), StripTimestamp(second.Content))
	assert.Contains(t, StripTimestamp(first.Content), "// Generated on: \n")
}

func TestGenerateInterfaceEmptyModel(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	gi, err := g.GenerateInterface(Model{Name: "empty-model"})
	require.NoError(t, err)

	assert.Contains(t, gi.Content, "export interface IEmptyModelContent {\n")
	assert.Contains(t, gi.Content, "  data: IEmptyModelData;\n")
	assert.Contains(t, gi.Content, "export interface IEmptyModelData {\n}\n")
	assert.NotContains(t, gi.Content, "@/types/generated")
}

func TestGenerateInterfaceExcludesBuiltinFields(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	gi, err := g.GenerateInterface(Model{
		Name: "post",
		Fields: []Field{
			{Name: "id", Type: "text"},
			{Name: "createdDate", Type: "number"},
			{Name: "rev", Type: "text"},
			{Name: "title", Type: "text"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "  title?: string;\n", dataSection(t, gi.Content, "IPost"))
}

func TestGenerateInterfaceDedupKeepsLastDefinition(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	gi, err := g.GenerateInterface(Model{
		Name: "dupes",
		Fields: []Field{
			{Name: "x", Type: "text"},
			{Name: "y", Type: "boolean"},
			{Name: "x", Type: "number", Required: true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "  x: number;\n  y?: boolean;\n", dataSection(t, gi.Content, "IDupes"))
}

func TestGenerateInterfaceReferenceResolution(t *testing.T) {
	tests := []struct {
		name  string
		index []ModelRef
		field Field
		want  string
	}{
		{
			name:  "by id",
			index: []ModelRef{{ID: "m1", Name: "author"}},
			field: Field{Name: "author", Type: "reference", ModelID: "m1"},
			want:  "  author?: BuilderReference<IAuthorContent>;\n",
		},
		{
			name:  "id wins over name",
			index: []ModelRef{{ID: "m1", Name: "hvac-brand"}},
			field: Field{Name: "brand", Type: "reference", ModelID: "m1", Model: "legacy-brand"},
			want:  "  brand?: BuilderReference<IHVACBrandContent>;\n",
		},
		{
			name:  "unknown id falls back to name",
			field: Field{Name: "brand", Type: "reference", ModelID: "missing", Model: "hvac-brand"},
			want:  "  brand?: BuilderReference<IHVACBrandContent>;\n",
		},
		{
			name:  "unresolved",
			field: Field{Name: "target", Type: "reference", ModelID: "missing"},
			want:  "  target?: BuilderReference;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newTestGenerator(t, nil)
			g.SetModelIndex(tt.index)

			gi, err := g.GenerateInterface(Model{Name: "page", Fields: []Field{tt.field}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, dataSection(t, gi.Content, "IPage"))
		})
	}
}

func TestGenerateInterfaceImports(t *testing.T) {
	g, _ := newTestGenerator(t, nil)
	g.SetModelIndex([]ModelRef{{ID: "m1", Name: "author"}, {ID: "m2", Name: "category"}})

	gi, err := g.GenerateInterface(Model{
		Name: "author",
		Fields: []Field{
			{Name: "mentor", Type: "reference", ModelID: "m1"},
			{Name: "categories", Type: "list", SubFields: []Field{
				{Name: "category", Type: "reference", ModelID: "m2"},
			}},
			{Name: "primary", Type: "reference", Model: "category"},
			{Name: "alias", Type: "reference", Model: "Category"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, gi.Content, "import type { ICategoryContent } from '@/types/generated';\n")
	assert.NotContains(t, gi.Content, "import type { IAuthorContent")
	assert.Contains(t, gi.Content, "  mentor?: BuilderReference<IAuthorContent>;\n")
}

func TestGenerateInterfaceUnknownFieldType(t *testing.T) {
	g, hook := newTestGenerator(t, nil)

	gi, err := g.GenerateInterface(Model{
		Name:   "odd",
		Fields: []Field{{Name: "weird", Type: "totally-unknown"}, {Name: "ok", Type: "url"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "  weird?: any;\n  ok?: string;\n", dataSection(t, gi.Content, "IOdd"))

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, `unknown field type "totally-unknown"`)
	assert.Equal(t, "odd", entry.Data["model"])
	assert.Equal(t, "weird", entry.Data["field"])
}

func TestGenerateInterfaceQuotesInvalidMemberNames(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	gi, err := g.GenerateInterface(Model{
		Name: "hero",
		Fields: []Field{
			{Name: "hero image", Type: "file"},
			{Name: "2col", Type: "boolean"},
			{Name: `say "hi"`, Type: "text"},
		},
	})
	require.NoError(t, err)

	want := "  \"hero image\"?: string;\n  \"2col\"?: boolean;\n  \"say \\\"hi\\\"\"?: string;\n"
	assert.Equal(t, want, dataSection(t, gi.Content, "IHero"))
}

func TestGenerateInterfaceSanitizesComments(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	gi, err := g.GenerateInterface(Model{
		Name:   "evil\nname",
		Fields: []Field{{Name: "a", Type: "text", HelperText: "ends */ early\nand wraps"}},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gi.Content, "// Auto-generated TypeScript interfaces for evil name content\n"))
	assert.Contains(t, gi.Content, "  /** ends *\\/ early and wraps */\n")
}

func TestGenerateInterfaceMissingName(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	for _, name := range []string{"", "   "} {
		gi, err := g.GenerateInterface(Model{ID: "x1", Name: name})
		assert.Nil(t, gi)
		assert.True(t, errors.Is(err, ErrMissingModelName), "got %v", err)
	}
}

func TestInterfaceName(t *testing.T) {
	withPrefix, _ := newTestGenerator(t, nil)
	withoutPrefix, _ := newTestGenerator(t, func(o *Options) { o.InterfacePrefix = false })

	tests := []struct {
		in     string
		prefix string
		plain  string
	}{
		{"hvac-unit-series", "IHVACUnitSeries", "HVACUnitSeries"},
		{"mcp_server_test_123", "IMcpServerTest123", "McpServerTest123"},
		{"Blog Post", "IBlogPost", "BlogPost"},
		{"api-url", "IAPIURL", "APIURL"},
		{"123-items", "I123Items", "_123Items"},
		{"---", "IModel", "Model"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.prefix, withPrefix.InterfaceName(tt.in))
			assert.Equal(t, tt.plain, withoutPrefix.InterfaceName(tt.in))
		})
	}
}

func TestInterfaceNameStableUnderSlugging(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	for _, in := range []string{"HVAC Unit Series", "mcp_server_test_123", "Blog--Post!!", "***"} {
		slug := strings.TrimSuffix(g.FileName(in), ".ts")
		assert.Equal(t, g.InterfaceName(in), g.InterfaceName(slug), in)
		assert.Equal(t, g.FileName(in), g.FileName(slug), in)
	}
}

func TestFileName(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	assert.Equal(t, "hvac-unit-series.ts", g.FileName("HVAC Unit Series"))
	assert.Equal(t, "blog-post.ts", g.FileName("blog_post"))
	assert.Equal(t, "model.ts", g.FileName("!!!"))
}

func TestModelIndexLifecycle(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	g.SetModelIndex([]ModelRef{{ID: "m1", Name: "author"}, {ID: "", Name: "skipped"}, {ID: "m2"}})
	assert.Equal(t, ModelIndex{"m1": "author"}, g.ModelIndex())

	g.SetModelIndex([]ModelRef{{ID: "m3", Name: "page"}})
	assert.Equal(t, ModelIndex{"m3": "page"}, g.ModelIndex())

	g.ClearModelIndex()
	assert.Empty(t, g.ModelIndex())
}

func TestGenerateIndexFile(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	author, err := g.GenerateInterface(Model{ID: "m1", Name: "author"})
	require.NoError(t, err)
	series, err := g.GenerateInterface(Model{ID: "m2", Name: "HVAC Unit Series"})
	require.NoError(t, err)

	autogold.Expect(`// Auto-generated index file for Builder.io content interfaces
// Generated on: 2025-06-13T11:01:54.231Z

export type { IAuthorContent, IAuthorData } from './author';
export type { IHVACUnitSeriesContent, IHVACUnitSeriesData } from './hvac-unit-series';
`).Equal(t, g.GenerateIndexFile([]*GeneratedInterface{author, series}))
}

func TestGenerateIndexFileEmpty(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	index := g.GenerateIndexFile(nil)
	assert.NotContains(t, index, "export")
	assert.True(t, strings.HasPrefix(index, "// Auto-generated index file"))
}

func TestInventory(t *testing.T) {
	g, _ := newTestGenerator(t, nil)

	gi, err := g.GenerateInterface(Model{ID: "m1", Name: "author"})
	require.NoError(t, err)

	autogold.Expect([]InventoryEntry{{
		ModelID:       "m1",
		ModelName:     "author",
		InterfaceName: "IAuthor",
		FilePath:      "out/author.ts",
		GeneratedAt:   "2025-06-13T11:01:54.231Z",
	}}).Equal(t, Inventory([]*GeneratedInterface{gi}))
}

func TestGenerateInterfaceCustomImports(t *testing.T) {
	g, _ := newTestGenerator(t, func(o *Options) {
		o.ReferenceImport = "../builder"
		o.GeneratedImport = "./index"
	})

	gi, err := g.GenerateInterface(Model{Name: "page", Fields: []Field{{Name: "a", Type: "reference", Model: "author"}}})
	require.NoError(t, err)

	assert.Contains(t, gi.Content, "import type { BuilderReference } from '../builder';\n")
	assert.Contains(t, gi.Content, "import type { IAuthorContent } from './index';\n")
}
