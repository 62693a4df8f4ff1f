package codegen

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yousuf/builder-typegen/internal/strutil"
)

// MaxDepth bounds subField recursion. Fields nested deeper resolve to any.
const MaxDepth = 10

// builtinFields are added by Builder.io to every content entry and are
// already part of the Content envelope.
var builtinFields = map[string]bool{
	"id":            true,
	"name":          true,
	"published":     true,
	"createdDate":   true,
	"lastUpdated":   true,
	"createdBy":     true,
	"lastUpdatedBy": true,
	"modelId":       true,
	"testRatio":     true,
	"screenshot":    true,
	"variations":    true,
	"rev":           true,
}

// scalarTypes maps Builder.io field types to the type the Content API returns
// for them. An empty value maps to any without a warning.
var scalarTypes = map[string]string{
	"text":     "string",
	"longText": "string",
	"richText": "string",
	"html":     "string",
	"markdown": "string",
	"number":   "number",
	"boolean":  "boolean",
	"date":     "string", // Content API returns dates as ISO strings
	"datetime": "string",
	"file":     "string",
	"image":    "string",
	"video":    "string",
	"select":   "string",
	"enum":     "string",
	"code":     "",
	"color":    "string",
	"url":      "string",
	"email":    "string",
	"phone":    "string",
	"blocks":   "",
}

// IsBuiltinField reports whether name is one of the system fields Builder.io
// adds to every model.
func IsBuiltinField(name string) bool {
	return builtinFields[name]
}

// FilterFields drops built-in and unnamed fields and removes duplicates by
// name. The last definition of a name wins but keeps the position of the
// first one.
func FilterFields(fields []Field) []Field {
	return dedupFields(fields, IsBuiltinField)
}

func dedupFields(fields []Field, skip func(name string) bool) []Field {
	out := make([]Field, 0, len(fields))
	position := make(map[string]int, len(fields))

	for _, f := range fields {
		if f.Name == "" || (skip != nil && skip(f.Name)) {
			continue
		}
		if i, ok := position[f.Name]; ok {
			out[i] = f
			continue
		}
		position[f.Name] = len(out)
		out = append(out, f)
	}

	return out
}

// fieldResolver converts Builder.io fields to TypeScript types for one model.
type fieldResolver struct {
	index         ModelIndex
	interfaceName func(modelName string) string
	log           logrus.FieldLogger
	modelName     string
}

// resolve maps a field to its content type. It never panics: any failure
// while resolving a field degrades that field to any.
func (r *fieldResolver) resolve(field Field, depth int) (t *TSType) {
	defer func() {
		if p := recover(); p != nil {
			r.warn(field, fmt.Sprintf("error processing field: %v", p))
			t = dynamic("resolution failed")
		}
	}()

	if depth > MaxDepth {
		r.warn(field, "maximum recursion depth reached")
		return dynamic("maximum recursion depth reached")
	}

	// Enum values win over the declared type: both select and text fields carry them.
	if len(field.Enum) > 0 {
		literals := enumLiterals(field.Enum)
		if len(literals) == 0 {
			return primitive("string")
		}
		return &TSType{Kind: KindEnum, Literals: literals}
	}

	switch field.Type {
	case "list":
		if len(field.SubFields) == 0 {
			return &TSType{Kind: KindList}
		}
		return &TSType{Kind: KindList, Properties: r.properties(field.SubFields, depth+1)}

	case "object":
		if len(field.SubFields) == 0 {
			return &TSType{Kind: KindRecord}
		}
		return &TSType{Kind: KindObject, Properties: r.properties(field.SubFields, depth+1)}

	case "reference":
		if target := r.referenceTarget(field); target != "" {
			return &TSType{Kind: KindReference, Target: r.interfaceName(target) + "Content"}
		}
		return &TSType{Kind: KindReference}
	}

	raw, ok := scalarTypes[field.Type]
	if !ok {
		r.warn(field, fmt.Sprintf("unknown field type %q", field.Type))
		return dynamic(fmt.Sprintf("unknown field type %q", field.Type))
	}
	if raw == "" {
		return dynamic(field.Type)
	}
	return primitive(raw)
}

// properties resolves subFields into record members.
func (r *fieldResolver) properties(fields []Field, depth int) []TSProperty {
	fields = dedupFields(fields, nil)
	props := make([]TSProperty, 0, len(fields))
	for _, f := range fields {
		props = append(props, TSProperty{
			Name:        f.Name,
			Type:        r.resolve(f, depth),
			IsOptional:  !f.Required,
			Description: f.HelperText,
		})
	}
	return props
}

// referenceTarget resolves the model a reference field points to, preferring
// the id lookup over the inline model name.
func (r *fieldResolver) referenceTarget(field Field) string {
	if field.ModelID != "" {
		if name, ok := r.index[field.ModelID]; ok && name != "" {
			return name
		}
	}
	return field.Model
}

// referencedModels collects the distinct model names referenced by fields,
// in first-seen order. It follows the same rules as resolve, so only
// references that end up in an emitted member are collected: enum fields
// are skipped and only list and object subFields are walked, after
// deduplication.
func (r *fieldResolver) referencedModels(fields []Field) []string {
	var names []string
	seen := make(map[string]bool)

	var walk func(fields []Field, depth int)
	walk = func(fields []Field, depth int) {
		if depth > MaxDepth {
			return
		}
		for _, f := range fields {
			if len(f.Enum) > 0 {
				continue
			}
			switch f.Type {
			case "reference":
				if target := r.referenceTarget(f); target != "" && !seen[target] {
					seen[target] = true
					names = append(names, target)
				}
			case "list", "object":
				walk(dedupFields(f.SubFields, nil), depth+1)
			}
		}
	}
	walk(fields, 0)

	return names
}

func (r *fieldResolver) warn(field Field, msg string) {
	r.log.WithFields(logrus.Fields{
		"model": r.modelName,
		"field": field.Name,
		"type":  field.Type,
	}).Warn(msg)
}

func dynamic(reason string) *TSType {
	return &TSType{Kind: KindDynamic, Reason: reason}
}

func primitive(raw string) *TSType {
	return &TSType{Kind: KindPrimitive, RawType: raw}
}

// enumLiterals cleans enum values, dropping empty and repeated ones.
func enumLiterals(values []string) []string {
	literals := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = cleanEnumValue(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		literals = append(literals, v)
	}
	return literals
}

// cleanEnumValue trims whitespace and one stray quote at either end, which
// shows up in schemas edited by hand.
func cleanEnumValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, `"`) || strings.HasPrefix(v, `'`) {
		v = v[1:]
	}
	if strings.HasSuffix(v, `"`) || strings.HasSuffix(v, `'`) {
		v = v[:len(v)-1]
	}
	return v
}

// quoteLiteral renders s as a double-quoted TypeScript string literal.
func quoteLiteral(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\u%04x`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// propertyName quotes names that are not plain identifiers.
func propertyName(name string) string {
	if strutil.IsIdentifier(name) {
		return name
	}
	return quoteLiteral(name)
}

// typeToString converts a TSType to its string representation
func typeToString(t *TSType) string {
	if t == nil {
		return "any"
	}

	switch t.Kind {
	case KindPrimitive:
		return t.RawType
	case KindEnum:
		parts := make([]string, len(t.Literals))
		for i, l := range t.Literals {
			parts[i] = quoteLiteral(l)
		}
		return strings.Join(parts, " | ")
	case KindList:
		if len(t.Properties) == 0 {
			return "any[]"
		}
		return "Array<" + inlineRecord(t.Properties) + ">"
	case KindObject:
		return inlineRecord(t.Properties)
	case KindRecord:
		return "Record<string, any>"
	case KindReference:
		if t.Target != "" {
			return "BuilderReference<" + t.Target + ">"
		}
		return "BuilderReference"
	default:
		return "any"
	}
}

func inlineRecord(props []TSProperty) string {
	members := make([]string, len(props))
	for i, p := range props {
		members[i] = propertySignature(p)
	}
	return "{" + strings.Join(members, "; ") + "}"
}

func propertySignature(p TSProperty) string {
	optional := ""
	if p.IsOptional {
		optional = "?"
	}
	return fmt.Sprintf("%s%s: %s", propertyName(p.Name), optional, typeToString(p.Type))
}
