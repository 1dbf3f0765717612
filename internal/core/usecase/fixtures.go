package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
)

// ImportFixtures loads a YAML list of template definitions and upserts each
// one. It stops at the first invalid definition and returns how many were
// stored before it.
func (s *TemplateService) ImportFixtures(ctx context.Context, r io.Reader) (int, error) {
	var docs []any
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}

	imported := 0
	for i, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return imported, fmt.Errorf("fixture %d: encode: %w", i, err)
		}
		tmpl, err := DecodeDefinition(raw)
		if err != nil {
			return imported, fmt.Errorf("fixture %d: %w", i, err)
		}
		if tmpl.Name == "" {
			return imported, fmt.Errorf("fixture %d: %w", i, domain.ErrInvalidName)
		}
		if _, err := s.Upsert(ctx, tmpl); err != nil {
			return imported, fmt.Errorf("fixture %d (%s): %w", i, tmpl.Name, err)
		}
		imported++
	}
	return imported, nil
}

// ExportFixtures writes every stored template to path as YAML. The file is
// replaced atomically.
func (s *TemplateService) ExportFixtures(ctx context.Context, path string) (int, error) {
	var defs []TemplateDefinition
	after := ""
	for {
		page, err := s.List(ctx, domain.TemplateFilter{After: after, Limit: 1000})
		if err != nil {
			return 0, fmt.Errorf("list templates: %w", err)
		}
		for _, tmpl := range page {
			defs = append(defs, DefinitionFromTemplate(tmpl))
		}
		if len(page) < 1000 {
			break
		}
		after = page[len(page)-1].Name
	}
	if defs == nil {
		defs = []TemplateDefinition{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defs); err != nil {
		return 0, fmt.Errorf("encode fixtures: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encode fixtures: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return 0, fmt.Errorf("write fixtures: %w", err)
	}
	return len(defs), nil
}
