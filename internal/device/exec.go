package device

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"devicelab/internal/errors"
)

// execRunner abstracts process execution so adapters can be exercised in
// tests without the platform tooling installed.
type execRunner interface {
	run(ctx context.Context, name string, args ...string) (string, error)
}

type systemRunner struct{}

func (systemRunner) run(ctx context.Context, name string, args ...string) (string, error) {
	errFactory := errors.New()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return stdout.String(), errFactory.Wrap(ErrRunTimeout, ctx.Err())
	}

	// Instrumentation tools report test failures through their output
	// while still exiting non-zero; the output is the interesting part.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		combined := stdout.String()
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			combined += "\n" + msg
		}
		return combined, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return "", errFactory.WithData(ErrToolNotFound, name)
	}

	return "", errFactory.Wrap(ErrRunFailed, err)
}
