// Package printformat renders template print formats with pongo2, the
// Django/Jinja-style syntax block templates are authored in.
package printformat

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
	"github.com/atvirokodosprendimai/editorjs/internal/core/ports"
)

// maxCached bounds the compiled template cache. Print formats change on every
// template edit, so the cache is dropped wholesale once it fills up.
const maxCached = 512

// noIncludes backs the template set so print formats cannot pull in files
// with include or extends.
var noIncludes embed.FS

type Option func(*Engine)

// mathMLElements are the presentation elements KaTeX emits for its
// accessible copy of an expression.
var mathMLElements = []string{
	"math", "semantics", "annotation", "mrow", "mi", "mn", "mo", "ms", "mtext",
	"mspace", "msup", "msub", "msubsup", "mfrac", "msqrt", "mroot", "mstyle",
	"mtable", "mtr", "mtd", "munder", "mover", "munderover", "mpadded",
	"mphantom", "menclose",
}

// WithSanitizer passes every rendered block through an HTML policy that
// keeps user-generated markup plus class and style attributes. KaTeX output
// survives intact: its MathML copy and the aria-hidden visual copy.
func WithSanitizer() Option {
	return func(e *Engine) {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class", "style").Globally()
		policy.AllowAttrs("aria-hidden").Matching(regexp.MustCompile(`^(true|false)$`)).Globally()
		policy.AllowElements("details", "summary", "figure", "figcaption", "span")
		policy.AllowElements(mathMLElements...)
		policy.AllowAttrs("xmlns", "display").OnElements("math")
		policy.AllowAttrs("encoding").OnElements("annotation")
		policy.AllowAttrs("mathvariant", "stretchy", "fence", "separator", "lspace", "rspace",
			"minsize", "maxsize", "accent", "accentunder", "width", "height", "depth",
			"columnalign", "rowspacing", "columnspacing", "scriptlevel", "displaystyle",
			"linethickness", "notation").OnElements(mathMLElements...)
		e.policy = policy
	}
}

// Engine compiles print formats once and renders them against block data.
type Engine struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	policy    *bluemonday.Policy
}

var _ ports.TemplateEngine = (*Engine)(nil)

func New(opts ...Option) *Engine {
	e := &Engine{
		set:       pongo2.NewSet("editorjs", pongo2.NewFSLoader(noIncludes)),
		templates: make(map[string]*pongo2.Template),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

func (e *Engine) RenderString(format string, data map[string]any) (string, error) {
	if strings.TrimSpace(format) == "" {
		return "", nil
	}

	tmpl, err := e.compile(format)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(toContext(data), &buf); err != nil {
		return "", fmt.Errorf("printformat: execute: %w", err)
	}

	out := buf.String()
	if e.policy != nil {
		out = e.policy.Sanitize(out)
	}
	return out, nil
}

func (e *Engine) compile(format string) (*pongo2.Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.templates[format]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[format]; ok {
		return tmpl, nil
	}

	tmpl, err := e.set.FromString(format)
	if err != nil {
		return nil, fmt.Errorf("printformat: compile: %w", err)
	}
	if len(e.templates) >= maxCached {
		e.templates = make(map[string]*pongo2.Template)
	}
	e.templates[format] = tmpl
	return tmpl, nil
}

// toContext marks pre-rendered markup safe so autoescaping leaves it intact
// and turns decoded JSON numbers into values pongo2 does arithmetic on.
func toContext(data map[string]any) pongo2.Context {
	ctx := make(pongo2.Context, len(data))
	for k, v := range data {
		ctx[k] = contextValue(v)
	}
	return ctx
}

func contextValue(v any) any {
	switch v := v.(type) {
	case domain.Markup:
		return pongo2.AsSafeValue(string(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return decimal(f)
		}
		return string(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = contextValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = contextValue(item)
		}
		return out
	default:
		return v
	}
}

// decimal is a float that prints in its shortest form; pongo2 would
// otherwise print 2.5 as 2.500000.
type decimal float64

func (d decimal) String() string {
	return strconv.FormatFloat(float64(d), 'g', -1, 64)
}
