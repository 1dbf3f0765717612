package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atvirokodosprendimai/editorjs/internal/core/domain"
)

const fixtureFile = `
- name: paragraph
  print_format: "<p>{{ text }}</p>"
  fields:
    - key: text
      type: String
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newCommand()
	var out, errOut bytes.Buffer
	cmd.Writer = &out
	cmd.ErrWriter = &errOut
	cmd.Reader = strings.NewReader(stdin)
	err := cmd.Run(context.Background(), append([]string{"editorjs"}, args...))
	return out.String(), err
}

func TestImportValidateRenderExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.sqlite")
	fixture := filepath.Join(dir, "templates.yaml")
	if err := os.WriteFile(fixture, []byte(fixtureFile), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := run(t, "", "--db-path", db, "import", fixture); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := run(t, "", "--db-path", db, "validate", "paragraph", `{"text":"hi"}`)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if strings.TrimSpace(out) != "valid" {
		t.Fatalf("unexpected validate output: %q", out)
	}

	_, err = run(t, "", "--db-path", db, "validate", "paragraph", `{"text":3}`)
	if !errors.Is(err, domain.ErrInvalidBlock) {
		t.Fatalf("expected invalid block, got %v", err)
	}

	out, err = run(t, `{"text":"from stdin"}`, "--db-path", db, "render", "paragraph", "-")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(out) != "<p>from stdin</p>" {
		t.Fatalf("unexpected render output: %q", out)
	}

	exported := filepath.Join(dir, "export.yaml")
	if _, err := run(t, "", "--db-path", db, "export", exported); err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := os.ReadFile(exported)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(raw), "name: paragraph") {
		t.Fatalf("unexpected export:\n%s", raw)
	}
}

func TestBlockArgsRequiresTwoArguments(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.sqlite")
	if _, err := run(t, "", "--db-path", db, "render", "paragraph"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("warn", "json", &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"k":"v"`) {
		t.Fatalf("unexpected log output: %q", buf.String())
	}

	if _, err := newLogger("loud", "text", &buf); err == nil {
		t.Fatal("expected invalid level error")
	}
	if _, err := newLogger("info", "xml", &buf); err == nil {
		t.Fatal("expected invalid format error")
	}
}
