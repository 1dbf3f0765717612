package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
	"github.com/atvirokodosprendimai/editorjs/internal/core/ports"
)

// BlockValidator checks block payloads against the template they claim to
// follow. Templates are fetched on every call.
type BlockValidator struct {
	templates ports.TemplateReader
}

func NewBlockValidator(templates ports.TemplateReader) *BlockValidator {
	return &BlockValidator{templates: templates}
}

// Validate returns nil when raw satisfies the named template. The payload is
// decoded before the template is fetched. Validation failures match
// domain.ErrInvalidBlock.
func (v *BlockValidator) Validate(ctx context.Context, templateName, raw string) error {
	if err := domain.ValidateName(templateName); err != nil {
		return err
	}
	data, err := DecodeBlockData(raw)
	if err != nil {
		return err
	}
	tmpl, err := v.templates.Get(ctx, templateName)
	if err != nil {
		return fmt.Errorf("load template %s: %w", templateName, err)
	}
	return ValidateBlock(tmpl, data)
}

// DecodeBlockData decodes a block payload into a mapping. A payload that
// decodes to a JSON string is unwrapped and decoded once more, which is how
// double-encoded payloads stored by older editors look.
func DecodeBlockData(raw string) (map[string]any, error) {
	if !gjson.Valid(raw) {
		return nil, &domain.InvalidDataError{Reason: "decoding failed"}
	}
	if res := gjson.Parse(raw); res.Type == gjson.String {
		raw = res.String()
		if !gjson.Valid(raw) {
			return nil, &domain.InvalidDataError{Reason: "decoding failed"}
		}
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &domain.InvalidDataError{Reason: "decoding failed", Err: err}
	}
	data, ok := v.(map[string]any)
	if !ok || data == nil {
		return nil, &domain.InvalidDataError{Reason: "invalid data"}
	}
	return data, nil
}

// ValidateBlock checks decoded data against tmpl. Keys the template does not
// declare are ignored.
func ValidateBlock(tmpl domain.Template, data map[string]any) error {
	var missing []string
	for _, key := range tmpl.RequiredKeys() {
		if _, ok := data[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		provided := slices.Sorted(maps.Keys(data))
		if provided == nil {
			provided = []string{}
		}
		return &domain.MissingKeysError{Required: missing, Provided: provided}
	}

	for _, field := range tmpl.Fields {
		value, ok := data[field.Key]
		if !ok {
			continue
		}
		if err := checkType(field.Key, value, field); err != nil {
			return err
		}
	}
	return nil
}

func checkType(key string, value any, field domain.FieldDescriptor) error {
	if field.Nullable && value == nil {
		return nil
	}
	if actual := KindOf(value); actual != field.Type {
		return &domain.TypeMismatchError{Key: key, Expected: field.Type, Actual: actual}
	}
	return nil
}

// KindOf names the JSON kind of a decoded value using the field type names.
func KindOf(value any) domain.FieldType {
	switch value.(type) {
	case nil:
		return domain.KindNull
	case string:
		return domain.FieldString
	case json.Number, float64, float32, int, int32, int64, uint, uint32, uint64:
		return domain.FieldNumber
	case bool:
		return domain.FieldBoolean
	case map[string]any:
		return domain.FieldObject
	case []any:
		return domain.FieldList
	default:
		return domain.FieldType(fmt.Sprintf("%T", value))
	}
}
