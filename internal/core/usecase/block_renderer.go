package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
	"github.com/atvirokodosprendimai/editorjs/internal/core/ports"
)

const defaultMaxRenderDepth = 16

// BlockRenderer produces the print output of a block from its template.
type BlockRenderer struct {
	templates ports.TemplateReader
	engine    ports.TemplateEngine
	math      ports.MathTypesetter
	site      ports.SiteURL
	logger    *slog.Logger
	maxDepth  int
}

type RendererOption func(*BlockRenderer)

func WithMathTypesetter(m ports.MathTypesetter) RendererOption {
	return func(r *BlockRenderer) {
		r.math = m
	}
}

func WithSiteURL(site ports.SiteURL) RendererOption {
	return func(r *BlockRenderer) {
		r.site = site
	}
}

func WithRendererLogger(logger *slog.Logger) RendererOption {
	return func(r *BlockRenderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMaxDepth bounds expandable nesting. Values below 1 keep the default.
func WithMaxDepth(depth int) RendererOption {
	return func(r *BlockRenderer) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

func NewBlockRenderer(templates ports.TemplateReader, engine ports.TemplateEngine, opts ...RendererOption) *BlockRenderer {
	r := &BlockRenderer{
		templates: templates,
		engine:    engine,
		logger:    slog.Default(),
		maxDepth:  defaultMaxRenderDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render merges data into the print format of tmpl.
func (r *BlockRenderer) Render(ctx context.Context, tmpl domain.Template, data map[string]any) (string, error) {
	return r.render(ctx, tmpl, data, 0)
}

// RenderNamed resolves the template by name before rendering.
func (r *BlockRenderer) RenderNamed(ctx context.Context, name string, data map[string]any) (string, error) {
	if err := domain.ValidateName(name); err != nil {
		return "", err
	}
	tmpl, err := r.templates.Get(ctx, name)
	if err != nil {
		return "", fmt.Errorf("load template %s: %w", name, err)
	}
	return r.Render(ctx, tmpl, data)
}

func (r *BlockRenderer) render(ctx context.Context, tmpl domain.Template, data map[string]any, depth int) (string, error) {
	if depth > r.maxDepth {
		return "", fmt.Errorf("render %s at depth %d: %w", tmpl.Name, depth, domain.ErrRenderDepthExceeded)
	}

	renderCtx := make(map[string]any, len(data)+2)
	maps.Copy(renderCtx, data)

	switch tmpl.BlockType() {
	case domain.BlockImage:
		url, ok := imageURL(data)
		if !ok {
			return "", nil
		}
		site := r.siteURL()
		renderCtx["file_url"] = absoluteURL(site, url)
		renderCtx["site_url"] = site
	case domain.BlockExpandable:
		body, err := r.renderBody(ctx, data["body"], depth)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", tmpl.Name, err)
		}
		renderCtx["body"] = domain.Markup(body)
	case domain.BlockMath:
		renderCtx["rendered_katex"] = domain.Markup(r.typeset(ctx, data))
		renderCtx["error"] = ""
	}

	out, err := r.engine.RenderString(tmpl.PrintFormat, renderCtx)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name, err)
	}
	return out, nil
}

func (r *BlockRenderer) renderBody(ctx context.Context, body any, depth int) (string, error) {
	items, _ := body.([]any)
	var sb strings.Builder
	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			return "", &domain.InvalidDataError{Reason: fmt.Sprintf("body[%d] is not an object", i)}
		}
		childType, _ := item["type"].(string)
		if childType == "" {
			return "", &domain.InvalidDataError{Reason: fmt.Sprintf("body[%d] has no type", i)}
		}
		childData, _ := item["data"].(map[string]any)
		if childData == nil {
			childData = map[string]any{}
		}

		child, err := r.templates.Get(ctx, childType)
		if err != nil {
			return "", fmt.Errorf("body[%d]: load template %s: %w", i, childType, err)
		}
		out, err := r.render(ctx, child, childData, depth+1)
		if err != nil {
			return "", fmt.Errorf("body[%d]: %w", i, err)
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

// typeset never fails: typesetter errors are logged and whatever output was
// produced is used.
func (r *BlockRenderer) typeset(ctx context.Context, data map[string]any) string {
	if r.math == nil {
		r.logger.Warn("math block rendered without typesetter")
		return ""
	}
	text, _ := data["text"].(string)
	expr := " " + strings.ReplaceAll(text, `\\`, `\`) + " "
	out, err := r.math.Typeset(ctx, expr)
	if err != nil {
		r.logger.Warn("math typesetting failed", "error", err)
	}
	return out
}

func (r *BlockRenderer) siteURL() string {
	if r.site == nil {
		return ""
	}
	return r.site.SiteURL()
}

func imageURL(data map[string]any) (string, bool) {
	file, ok := data["file"].(map[string]any)
	if !ok {
		return "", false
	}
	url, ok := file["url"].(string)
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

func absoluteURL(site, url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return strings.TrimRight(site, "/") + "/" + strings.TrimLeft(url, "/")
}
