package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
)

const fixtureYAML = `
- name: paragraph
  print_format: "<p>{{ text }}</p>"
  fields:
    - key: text
      type: String
- name: image
  print_format: "<img src='{{ file_url }}'>"
  fields:
    - key: file
      type: Object
    - key: caption
      type: String
      nullable: true
`

func TestImportFixtures(t *testing.T) {
	repo := newStubTemplateRepo()
	svc := NewTemplateService(repo)

	n, err := svc.ImportFixtures(context.Background(), strings.NewReader(fixtureYAML))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}

	img, err := svc.Get(context.Background(), "image")
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	want := []domain.FieldDescriptor{
		{Key: "file", Type: domain.FieldObject},
		{Key: "caption", Type: domain.FieldString, Nullable: true},
	}
	if diff := cmp.Diff(want, img.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestImportFixturesStopsAtInvalidDefinition(t *testing.T) {
	svc := NewTemplateService(newStubTemplateRepo())
	doc := `
- name: ok
  print_format: ""
- name: bad
  print_format: ""
  fields:
    - key: when
      type: Date
`
	n, err := svc.ImportFixtures(context.Background(), strings.NewReader(doc))
	var violation *domain.ErrDefinitionViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected definition violation, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported before failure, got %d", n)
	}
}

func TestImportFixturesRequiresName(t *testing.T) {
	svc := NewTemplateService(newStubTemplateRepo())
	_, err := svc.ImportFixtures(context.Background(), strings.NewReader(`- print_format: "x"`))
	if !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected invalid name, got %v", err)
	}
}

func TestImportFixturesEmptyDocument(t *testing.T) {
	svc := NewTemplateService(newStubTemplateRepo())
	n, err := svc.ImportFixtures(context.Background(), strings.NewReader(""))
	if err != nil || n != 0 {
		t.Fatalf("expected empty import, got %d, %v", n, err)
	}
}

func TestExportFixturesRoundTrip(t *testing.T) {
	src := NewTemplateService(newStubTemplateRepo())
	if _, err := src.ImportFixtures(context.Background(), strings.NewReader(fixtureYAML)); err != nil {
		t.Fatalf("import: %v", err)
	}

	path := filepath.Join(t.TempDir(), "templates.yaml")
	n, err := src.ExportFixtures(context.Background(), path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 exported, got %d", n)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	dstRepo := newStubTemplateRepo()
	dst := NewTemplateService(dstRepo)
	if _, err := dst.ImportFixtures(context.Background(), f); err != nil {
		t.Fatalf("re-import: %v", err)
	}

	srcList, _ := src.List(context.Background(), domain.TemplateFilter{})
	dstList, _ := dst.List(context.Background(), domain.TemplateFilter{})
	if diff := cmp.Diff(srcList, dstList, cmpopts.IgnoreFields(domain.Template{}, "Revision", "CreatedAt", "UpdatedAt")); diff != "" {
		t.Fatalf("round trip mismatch (-src +dst):\n%s", diff)
	}
}
