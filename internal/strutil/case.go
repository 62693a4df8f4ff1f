package strutil

import "strings"

// DefaultAcronyms are rendered fully upper-case by ToPascalCase.
var DefaultAcronyms = []string{"HVAC", "API", "URL", "HTML", "CSS", "JS", "TS", "ID", "UUID"}

// Words splits s on every run of characters outside [A-Za-z0-9].
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !isAlphaNum(r)
	})
}

// ToPascalCase converts a string to PascalCase.
// Handles snake_case, kebab-case, space-separated and mixed punctuation.
// Words matching one of the acronyms (case-insensitive) are upper-cased,
// every other word is capitalized and the remainder lower-cased.
func ToPascalCase(s string, acronyms ...string) string {
	known := make(map[string]bool, len(acronyms))
	for _, a := range acronyms {
		known[strings.ToUpper(a)] = true
	}

	parts := Words(s)
	for i, part := range parts {
		upper := strings.ToUpper(part)
		if known[upper] {
			parts[i] = upper
			continue
		}
		parts[i] = upper[0:1] + strings.ToLower(part[1:])
	}

	return strings.Join(parts, "")
}

// Slug collapses every run of non-alphanumeric characters into a single '-',
// trims separators at both ends and lower-cases the result.
func Slug(s string) string {
	return strings.ToLower(strings.Join(Words(s), "-"))
}

// IsIdentifier reports whether s can be used unquoted as a TypeScript
// property name or type name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
