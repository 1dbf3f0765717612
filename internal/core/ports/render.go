package ports

import "context"

// TemplateEngine merges a render context into a print format string.
type TemplateEngine interface {
	RenderString(format string, data map[string]any) (string, error)
}

// MathTypesetter converts a TeX expression into display markup.
type MathTypesetter interface {
	Typeset(ctx context.Context, expr string) (string, error)
}

// SiteURL returns the deployment root used to build absolute file links.
type SiteURL interface {
	SiteURL() string
}
