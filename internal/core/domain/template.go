package domain

import (
	"fmt"
	"time"
)

// FieldType is the declared kind of a template field.
type FieldType string

const (
	FieldString  FieldType = "String"
	FieldNumber  FieldType = "Number"
	FieldBoolean FieldType = "Boolean"
	FieldObject  FieldType = "Object"
	FieldList    FieldType = "List"
)

// KindNull is reported as the actual kind of a JSON null. It is never a
// valid declared type.
const KindNull FieldType = "Null"

var fieldTypes = []FieldType{FieldString, FieldNumber, FieldBoolean, FieldObject, FieldList}

// FieldTypes returns the declarable field types in display order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

func (t FieldType) Valid() bool {
	for _, ft := range fieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

type FieldDescriptor struct {
	Key      string    `json:"key" yaml:"key"`
	Type     FieldType `json:"type" yaml:"type"`
	Nullable bool      `json:"nullable" yaml:"nullable"`
}

// Block types with dedicated render behaviour.
const (
	BlockImage      = "image"
	BlockExpandable = "expandable"
	BlockMath       = "Math"
)

// Template is an administrator-defined block schema together with the
// print format used to render blocks of that type.
type Template struct {
	Name        string
	Type        string
	PrintFormat string
	Fields      []FieldDescriptor
	Revision    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BlockType is the render discriminator; it falls back to the template name.
func (t Template) BlockType() string {
	if t.Type != "" {
		return t.Type
	}
	return t.Name
}

// RequiredKeys lists the non-nullable keys in declaration order.
func (t Template) RequiredKeys() []string {
	keys := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		if !f.Nullable {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

func (t Template) Validate() error {
	if err := ValidateName(t.Name); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(t.Fields))
	var errs []string
	for i, f := range t.Fields {
		if f.Key == "" {
			errs = append(errs, fmt.Sprintf("fields[%d]: key is required", i))
			continue
		}
		if _, dup := seen[f.Key]; dup {
			errs = append(errs, fmt.Sprintf("fields[%d]: duplicate key %q", i, f.Key))
		}
		seen[f.Key] = struct{}{}
		if !f.Type.Valid() {
			errs = append(errs, fmt.Sprintf("fields[%d]: unknown type %q", i, f.Type))
		}
	}
	if len(errs) > 0 {
		return &ErrDefinitionViolation{Errors: errs}
	}
	return nil
}

// Markup is rendered output that the template engine must not escape again.
type Markup string
