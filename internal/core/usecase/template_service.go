package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
	"github.com/atvirokodosprendimai/editorjs/internal/core/ports"
)

//go:embed template_definition.schema.json
var definitionSchemaJSON []byte

var (
	definitionSchemaOnce sync.Once
	definitionSchema     *santhosh.Schema
	definitionSchemaErr  error
)

// TemplateDefinition is the wire and fixture shape of a template.
type TemplateDefinition struct {
	Name        string                   `json:"name,omitempty" yaml:"name"`
	Type        string                   `json:"type,omitempty" yaml:"type,omitempty"`
	PrintFormat string                   `json:"print_format" yaml:"print_format"`
	Fields      []domain.FieldDescriptor `json:"fields" yaml:"fields"`
}

func (d TemplateDefinition) Template() domain.Template {
	fields := d.Fields
	if fields == nil {
		fields = []domain.FieldDescriptor{}
	}
	return domain.Template{
		Name:        d.Name,
		Type:        d.Type,
		PrintFormat: d.PrintFormat,
		Fields:      fields,
	}
}

func DefinitionFromTemplate(tmpl domain.Template) TemplateDefinition {
	fields := tmpl.Fields
	if fields == nil {
		fields = []domain.FieldDescriptor{}
	}
	return TemplateDefinition{
		Name:        tmpl.Name,
		Type:        tmpl.Type,
		PrintFormat: tmpl.PrintFormat,
		Fields:      fields,
	}
}

// TemplateService manages EditorJS templates.
type TemplateService struct {
	repo ports.TemplateRepository
}

func NewTemplateService(repo ports.TemplateRepository) *TemplateService {
	return &TemplateService{repo: repo}
}

func (s *TemplateService) Upsert(ctx context.Context, tmpl domain.Template) (domain.Template, error) {
	if err := tmpl.Validate(); err != nil {
		return domain.Template{}, err
	}
	if tmpl.Fields == nil {
		tmpl.Fields = []domain.FieldDescriptor{}
	}
	return s.repo.Upsert(ctx, tmpl)
}

func (s *TemplateService) Get(ctx context.Context, name string) (domain.Template, error) {
	if err := domain.ValidateName(name); err != nil {
		return domain.Template{}, err
	}
	return s.repo.Get(ctx, name)
}

func (s *TemplateService) Delete(ctx context.Context, name string) (bool, error) {
	if err := domain.ValidateName(name); err != nil {
		return false, err
	}
	return s.repo.Delete(ctx, name)
}

func (s *TemplateService) List(ctx context.Context, filter domain.TemplateFilter) ([]domain.Template, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}

// DecodeDefinition checks raw against the template definition schema and
// decodes it. Returns *domain.ErrDefinitionViolation on failure.
func DecodeDefinition(raw []byte) (domain.Template, error) {
	if !json.Valid(raw) {
		return domain.Template{}, &domain.ErrDefinitionViolation{Errors: []string{"definition must be valid json"}}
	}
	sch, err := compiledDefinitionSchema()
	if err != nil {
		return domain.Template{}, fmt.Errorf("compile definition schema: %w", err)
	}
	if err := runValidation(sch, raw); err != nil {
		return domain.Template{}, err
	}

	var def TemplateDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.Template{}, &domain.ErrDefinitionViolation{Errors: []string{err.Error()}}
	}
	return def.Template(), nil
}

func compiledDefinitionSchema() (*santhosh.Schema, error) {
	definitionSchemaOnce.Do(func() {
		compiler := santhosh.NewCompiler()
		compiler.Draft = santhosh.Draft7
		if err := compiler.AddResource("template_definition.json", bytes.NewReader(definitionSchemaJSON)); err != nil {
			definitionSchemaErr = err
			return
		}
		definitionSchema, definitionSchemaErr = compiler.Compile("template_definition.json")
	})
	return definitionSchema, definitionSchemaErr
}

func runValidation(sch *santhosh.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal definition: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &domain.ErrDefinitionViolation{Errors: collectValidationErrors(ve)}
		}
		return &domain.ErrDefinitionViolation{Errors: []string{err.Error()}}
	}
	return nil
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", loc, ve.Message))
	}
	return msgs
}
