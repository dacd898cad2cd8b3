package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one extractor invocation and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// RunError is returned when the extractor exits unsuccessfully.
// Stderr holds the extractor's own diagnostics, which the classifier matches against.
type RunError struct {
	Stderr string
	Err    error
}

func (e *RunError) Error() string {
	if e.Stderr == "" {
		return e.Err.Error()
	}
	return e.Stderr
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ExecRunner runs the yt-dlp binary as a subprocess.
type ExecRunner struct {
	path string
}

// Compile-time verification that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates a runner for the binary at path.
// If path is empty, "yt-dlp" will be used (assumes it's in PATH).
func NewExecRunner(path string) *ExecRunner {
	if path == "" {
		path = "yt-dlp"
	}
	return &ExecRunner{path: path}
}

// Run starts the binary and waits for completion.
func (r *ExecRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extraction cancelled: %w", ctx.Err())
		}
		return nil, &RunError{Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	return stdout.Bytes(), nil
}
