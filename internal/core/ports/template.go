package ports

import (
	"context"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
)

// TemplateReader resolves a template by name. Implementations must not cache:
// edits have to be visible to the next call.
type TemplateReader interface {
	Get(ctx context.Context, name string) (domain.Template, error)
}

type TemplateRepository interface {
	TemplateReader
	Upsert(ctx context.Context, tmpl domain.Template) (domain.Template, error)
	Delete(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, filter domain.TemplateFilter) ([]domain.Template, error)
}
