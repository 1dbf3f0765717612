// Package katex typesets math expressions by piping them through the katex
// command-line renderer.
package katex

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/editorjs/internal/core/ports"
)

const DefaultCommand = "katex --display-mode"

type Typesetter struct {
	name    string
	args    []string
	timeout time.Duration
}

var _ ports.MathTypesetter = (*Typesetter)(nil)

// New splits command on whitespace. An empty command falls back to
// DefaultCommand; a zero timeout means the call is bounded only by ctx.
func New(command string, timeout time.Duration) *Typesetter {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = strings.Fields(DefaultCommand)
	}
	return &Typesetter{name: fields[0], args: fields[1:], timeout: timeout}
}

// Typeset writes expr to the command's stdin and returns its stdout. On
// failure the output captured so far is returned along with the error.
func (t *Typesetter) Typeset(ctx context.Context, expr string) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.name, t.args...)
	cmd.Stdin = strings.NewReader(expr)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.String(), fmt.Errorf("katex: %w: %s", err, msg)
		}
		return stdout.String(), fmt.Errorf("katex: %w", err)
	}
	return stdout.String(), nil
}
