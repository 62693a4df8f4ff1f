package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hvac-unit-series", "HVACUnitSeries"},
		{"mcp_server_test_123", "McpServerTest123"},
		{"blog post", "BlogPost"},
		{"api--URL__id", "APIURLID"},
		{"camelCaseName", "Camelcasename"},
		{"  leading and trailing  ", "LeadingAndTrailing"},
		{"uuid.v4", "UUIDV4"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPascalCase(tt.in, DefaultAcronyms...))
		})
	}
}

func TestToPascalCaseWithoutAcronyms(t *testing.T) {
	assert.Equal(t, "HvacUnit", ToPascalCase("hvac-unit"))
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HVAC Unit Series", "hvac-unit-series"},
		{"blog_post", "blog-post"},
		{"--Weird!!Name--", "weird-name"},
		{"already-a-slug", "already-a-slug"},
		{"Ünïcode name", "n-code-name"},
		{"***", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Slug(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Slug(got), "slug must be stable")
		})
	}
}

func TestPascalCaseIgnoresSlugging(t *testing.T) {
	inputs := []string{"HVAC Unit Series", "mcp_server_test_123", "Blog-Post", "a.b.c", "Ünïcode name"}
	for _, in := range inputs {
		assert.Equal(t, ToPascalCase(in, DefaultAcronyms...), ToPascalCase(Slug(in), DefaultAcronyms...), in)
	}
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("title"))
	assert.True(t, IsIdentifier("_private"))
	assert.True(t, IsIdentifier("$ref"))
	assert.True(t, IsIdentifier("field2"))
	assert.False(t, IsIdentifier("2field"))
	assert.False(t, IsIdentifier("with-dash"))
	assert.False(t, IsIdentifier("with space"))
	assert.False(t, IsIdentifier(""))
}
