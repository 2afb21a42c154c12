package zenn

import (
	"context"
	"os/exec"
	"strings"

	"github.com/ktsujino/zenn-assist/errors"
)

// CommandRunner executes one external command in a working directory.
// Abstracted so generate/publish logic is testable without npx or git.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (stdout string, stderr string, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

var _ CommandRunner = ExecRunner{}

// Run executes name with args in dir and captures both output streams.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), errors.Wrapf(err, "command %s failed. Output:\n%s", name, stderr.String())
	}
	return stdout.String(), stderr.String(), nil
}
