package codegen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnrecognizedModels is returned by ParseModels when the payload has none
// of the accepted shapes.
var ErrUnrecognizedModels = errors.New("unrecognized models payload")

// UnmarshalJSON decodes a field leniently. Malformed enum or subField values
// are dropped instead of failing the whole model.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       any             `json:"name"`
		Type       any             `json:"type"`
		Required   any             `json:"required"`
		Enum       json.RawMessage `json:"enum"`
		SubFields  json.RawMessage `json:"subFields"`
		Model      any             `json:"model"`
		ModelID    any             `json:"modelId"`
		HelperText any             `json:"helperText"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	required, _ := raw.Required.(bool)
	*f = Field{
		Name:       asString(raw.Name),
		Type:       asString(raw.Type),
		Required:   required,
		Enum:       decodeEnum(raw.Enum),
		SubFields:  decodeFields(raw.SubFields),
		Model:      asString(raw.Model),
		ModelID:    asString(raw.ModelID),
		HelperText: asString(raw.HelperText),
	}
	return nil
}

// UnmarshalJSON decodes a model leniently. A fields value that is not an
// array yields an empty field list.
func (m *Model) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     any             `json:"id"`
		Name   any             `json:"name"`
		Kind   any             `json:"kind"`
		Fields json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Model{
		ID:     asString(raw.ID),
		Name:   asString(raw.Name),
		Kind:   asString(raw.Kind),
		Fields: decodeFields(raw.Fields),
	}
	return nil
}

// ParseModels decodes a list of models from a JSON array, an object with a
// "models" or "results" array, the GraphQL shape {"data": {"models": [...]}},
// or a single model object. An object carrying both "name" and "fields" is
// always a single model, and wrapper keys are only followed when they hold an
// array or an object.
func ParseModels(data []byte) ([]Model, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrUnrecognizedModels
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to decode models: %w", err)
		}
		models := make([]Model, 0, len(items))
		for _, item := range items {
			if !isObject(item) {
				continue
			}
			var m Model
			if err := json.Unmarshal(item, &m); err != nil {
				return nil, fmt.Errorf("failed to decode model %d: %w", len(models), err)
			}
			models = append(models, m)
		}
		return models, nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode models: %w", err)
		}
		_, hasName := obj["name"]
		_, hasFields := obj["fields"]
		if hasName && hasFields {
			return parseSingleModel(data)
		}
		for _, key := range []string{"models", "results", "data"} {
			nested, ok := obj[key]
			if !ok {
				continue
			}
			if nested = bytes.TrimSpace(nested); len(nested) > 0 && (nested[0] == '[' || nested[0] == '{') {
				return ParseModels(nested)
			}
		}
		if hasName {
			return parseSingleModel(data)
		}
	}

	return nil, ErrUnrecognizedModels
}

func parseSingleModel(data []byte) ([]Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return []Model{m}, nil
}

func decodeFields(data json.RawMessage) []Field {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}

	fields := make([]Field, 0, len(items))
	for _, item := range items {
		if !isObject(item) {
			continue
		}
		var f Field
		if err := json.Unmarshal(item, &f); err != nil {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

func decodeEnum(data json.RawMessage) []string {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}

	values := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			values = append(values, v)
		case float64, bool:
			values = append(values, asString(v))
		}
	}
	return values
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func isObject(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}
