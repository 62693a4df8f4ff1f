package codegen

import "time"

// Field is a single attribute of a Builder.io model schema.
type Field struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Required   bool     `json:"required,omitempty"`
	Enum       []string `json:"enum,omitempty"`
	SubFields  []Field  `json:"subFields,omitempty"`
	Model      string   `json:"model,omitempty"`   // Reference target by name
	ModelID    string   `json:"modelId,omitempty"` // Reference target by id, resolved through the ModelIndex
	HelperText string   `json:"helperText,omitempty"`
}

// Model is a named Builder.io schema with an ordered field list.
type Model struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Kind   string  `json:"kind,omitempty"`
	Fields []Field `json:"fields"`
}

// ModelRef is the id/name pair used to build a ModelIndex.
type ModelRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ModelIndex maps model ids to model names. It is read-only once built.
type ModelIndex map[string]string

// NewModelIndex builds an index from refs, skipping entries without an id or a name.
func NewModelIndex(refs []ModelRef) ModelIndex {
	index := make(ModelIndex, len(refs))
	for _, ref := range refs {
		if ref.ID == "" || ref.Name == "" {
			continue
		}
		index[ref.ID] = ref.Name
	}
	return index
}

// RefsFromModels extracts the id/name pairs of models.
func RefsFromModels(models []Model) []ModelRef {
	refs := make([]ModelRef, 0, len(models))
	for _, m := range models {
		refs = append(refs, ModelRef{ID: m.ID, Name: m.Name})
	}
	return refs
}

// Kind tags the variant held by a TSType.
type Kind string

const (
	KindDynamic   Kind = "dynamic"   // any: fidelity was lost here
	KindPrimitive Kind = "primitive" // string, number, boolean
	KindEnum      Kind = "enum"      // union of string literals
	KindList      Kind = "list"      // Array<...>
	KindObject    Kind = "object"    // inline record literal
	KindRecord    Kind = "record"    // Record<string, any>
	KindReference Kind = "reference" // BuilderReference<...>
)

// TSType is a resolved TypeScript type expression.
type TSType struct {
	Kind       Kind
	RawType    string       // Primitive name
	Literals   []string     // Enum values, unescaped
	Properties []TSProperty // Members for list items and objects
	Target     string       // Referenced interface name, empty for an untyped reference
	Reason     string       // Why a dynamic type was produced
}

// TSProperty is a member of an inline record type or of a Data interface.
type TSProperty struct {
	Name        string
	Type        *TSType
	IsOptional  bool
	Description string
}

// GeneratedInterface is the output for one model. Content holds the full
// TypeScript source of the Content and Data interfaces.
type GeneratedInterface struct {
	ModelID       string    `json:"modelId"`
	ModelName     string    `json:"modelName"`
	InterfaceName string    `json:"interfaceName"`
	Content       string    `json:"-"`
	FilePath      string    `json:"filePath"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// ContentType is the name of the entry envelope interface.
func (gi *GeneratedInterface) ContentType() string {
	return gi.InterfaceName + "Content"
}

// DataType is the name of the interface nested under the entry's data property.
func (gi *GeneratedInterface) DataType() string {
	return gi.InterfaceName + "Data"
}

// InventoryEntry describes one generated interface for manifests and tool responses.
type InventoryEntry struct {
	ModelID       string `json:"modelId"`
	ModelName     string `json:"modelName"`
	InterfaceName string `json:"interfaceName"`
	FilePath      string `json:"filePath"`
	GeneratedAt   string `json:"generatedAt"`
}

// Inventory lists what was generated, in input order.
func Inventory(interfaces []*GeneratedInterface) []InventoryEntry {
	entries := make([]InventoryEntry, 0, len(interfaces))
	for _, gi := range interfaces {
		entries = append(entries, InventoryEntry{
			ModelID:       gi.ModelID,
			ModelName:     gi.ModelName,
			InterfaceName: gi.InterfaceName,
			FilePath:      gi.FilePath,
			GeneratedAt:   gi.GeneratedAt.UTC().Format(timestampLayout),
		})
	}
	return entries
}
