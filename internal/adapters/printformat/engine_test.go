package printformat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
	"github.com/atvirokodosprendimai/editorjs/internal/core/usecase"
)

func TestRenderStringSubstitutesData(t *testing.T) {
	e := New()
	out, err := e.RenderString("<p>{{ text }}</p>", map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<p>hello</p>" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderStringEscapesPlainStrings(t *testing.T) {
	e := New()
	out, err := e.RenderString("{{ text }}", map[string]any{"text": "<b>x</b>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "&lt;b&gt;x&lt;/b&gt;" {
		t.Fatalf("expected escaped output, got %q", out)
	}
}

func TestRenderStringKeepsMarkup(t *testing.T) {
	e := New()
	out, err := e.RenderString("<div>{{ body }}</div>", map[string]any{"body": domain.Markup("<p>a</p>")})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<div><p>a</p></div>" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderStringPrintsNumbersAsWritten(t *testing.T) {
	e := New()
	out, err := e.RenderString("{{ n }}", map[string]any{"n": json.Number("3")})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "3" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderStringDoesArithmeticOnDecodedNumbers(t *testing.T) {
	data, err := usecase.DecodeBlockData(`{"count":10,"ratio":2.5,"stats":{"views":[4,6]}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	format := "{{ count|add:1 }}|{{ ratio }}|{{ ratio|add:1 }}|{% for v in stats.views %}{{ v|add:1 }},{% endfor %}{% if count > 9 %}big{% endif %}"
	out, err := New().RenderString(format, data)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "11|2.5|3.500000|5,7,big"; out != want {
		t.Fatalf("unexpected output:\n got %q\nwant %q", out, want)
	}
}

func TestRenderStringSupportsControlFlow(t *testing.T) {
	e := New()
	format := "{% for item in items %}<li>{{ item }}</li>{% endfor %}{% if caption %}<i>{{ caption }}</i>{% endif %}"
	out, err := e.RenderString(format, map[string]any{"items": []any{"a", "b"}, "caption": nil})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<li>a</li><li>b</li>" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderStringEmptyFormat(t *testing.T) {
	out, err := New().RenderString("  ", map[string]any{"x": 1})
	if err != nil || out != "" {
		t.Fatalf("expected empty output, got %q, %v", out, err)
	}
}

func TestRenderStringCompileError(t *testing.T) {
	if _, err := New().RenderString("{% if %}", nil); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestRenderStringRejectsIncludes(t *testing.T) {
	if _, err := New().RenderString(`{% include "/etc/passwd" %}`, nil); err == nil {
		t.Fatal("expected include to fail")
	}
}

func TestRenderStringCachesCompiledFormats(t *testing.T) {
	e := New()
	for i := 0; i < 3; i++ {
		if _, err := e.RenderString("{{ a }}", map[string]any{"a": i}); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if len(e.templates) != 1 {
		t.Fatalf("expected one cached template, got %d", len(e.templates))
	}
}

func TestWithSanitizerStripsScripts(t *testing.T) {
	e := New(WithSanitizer())
	out, err := e.RenderString(`<p class="lead">{{ body }}</p>`, map[string]any{
		"body": domain.Markup(`ok<script>alert(1)</script>`),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script removed, got %q", out)
	}
	if !strings.Contains(out, `class="lead"`) {
		t.Fatalf("expected class kept, got %q", out)
	}
}

type fixedTypesetter string

func (f fixedTypesetter) Typeset(context.Context, string) (string, error) {
	return string(f), nil
}

func TestWithSanitizerKeepsMathBlocks(t *testing.T) {
	katexHTML := `<span class="katex"><span class="katex-mathml">` +
		`<math xmlns="http://www.w3.org/1998/Math/MathML"><semantics><mrow><mi>x</mi></mrow>` +
		`<annotation encoding="application/x-tex">x</annotation></semantics></math></span>` +
		`<span class="katex-html" aria-hidden="true"><span class="mord mathnormal">x</span></span></span>`

	renderer := usecase.NewBlockRenderer(nil, New(WithSanitizer()), usecase.WithMathTypesetter(fixedTypesetter(katexHTML)))
	tmpl := domain.Template{Name: domain.BlockMath, PrintFormat: `<div class="math">{{ rendered_katex }}</div>`}

	out, err := renderer.Render(context.Background(), tmpl, map[string]any{"text": "x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`<math xmlns="http://www.w3.org/1998/Math/MathML">`,
		`<mi>x</mi>`,
		`<annotation encoding="application/x-tex">x</annotation>`,
		`<span class="katex-html" aria-hidden="true">`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in sanitized output, got %q", want, out)
		}
	}
}

func TestWithSanitizerDropsInvalidAriaHidden(t *testing.T) {
	out, err := New(WithSanitizer()).RenderString(`<span aria-hidden="{{ v }}">x</span>`, map[string]any{"v": "javascript:1"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "aria-hidden") {
		t.Fatalf("expected aria-hidden dropped, got %q", out)
	}
}
