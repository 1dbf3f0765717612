package katex

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestNewDefaultsCommand(t *testing.T) {
	ts := New("  ", 0)
	if ts.name != "katex" || len(ts.args) != 1 || ts.args[0] != "--display-mode" {
		t.Fatalf("unexpected command: %s %v", ts.name, ts.args)
	}
}

func TestTypesetPipesExpression(t *testing.T) {
	requireBinary(t, "cat")

	out, err := New("cat", 0).Typeset(context.Background(), ` \frac{1}{2} `)
	if err != nil {
		t.Fatalf("typeset: %v", err)
	}
	if out != ` \frac{1}{2} ` {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTypesetReportsFailure(t *testing.T) {
	requireBinary(t, "sh")

	_, err := New("sh -c exit_with_error_7", 0).Typeset(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error from failing command")
	}
	if !strings.HasPrefix(err.Error(), "katex:") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTypesetHonoursTimeout(t *testing.T) {
	requireBinary(t, "sleep")

	start := time.Now()
	_, err := New("sleep 5", 50*time.Millisecond).Typeset(context.Background(), "")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("expected command to be killed by timeout")
	}
}

func TestTypesetMissingBinary(t *testing.T) {
	if _, err := New("definitely-not-a-katex-binary", 0).Typeset(context.Background(), "x"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
