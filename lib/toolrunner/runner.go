// Package toolrunner invokes the external image tools shipped in a component
// directory (simg2img, mkenvimage_slim, avbtool).
package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	cvdotel "github.com/onkernel/cvd2img/lib/otel"
	"github.com/onkernel/cvd2img/lib/paths"
)

// Outcome is the result of a tool invocation.
type Outcome struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the tool exited with status zero.
func (o *Outcome) Success() bool {
	return o.ExitCode == 0
}

// Runner runs a tool given by its path relative to the component directory.
// A missing executable yields ErrToolNotFound; a non-zero exit yields a
// *ToolError alongside the captured Outcome.
type Runner interface {
	Run(ctx context.Context, tool string, args ...string) (*Outcome, error)
}

// ExecRunner runs tools as synchronous child processes.
type ExecRunner struct {
	dir     string
	env     []string
	logger  *slog.Logger
	metrics *cvdotel.PipelineMetrics
}

// Env returns the variables set for every tool invocation.
func Env(componentDir string) map[string]string {
	return map[string]string{
		"HOME":                componentDir,
		"ANDROID_ROOT":        componentDir,
		"ANDROID_TZDATA_ROOT": componentDir,
	}
}

// New creates an ExecRunner rooted at the canonical form of componentDir.
func New(componentDir string, logger *slog.Logger, metrics *cvdotel.PipelineMetrics) (*ExecRunner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir, err := paths.Canonical(componentDir)
	if err != nil {
		return nil, fmt.Errorf("canonical component dir: %w", err)
	}

	env := os.Environ()
	for k, v := range Env(dir) {
		env = append(env, k+"="+v)
	}

	return &ExecRunner{
		dir:     dir,
		env:     env,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Dir returns the canonical component directory.
func (r *ExecRunner) Dir() string {
	return r.dir
}

// Run executes tool with args and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, tool string, args ...string) (*Outcome, error) {
	name := filepath.Base(tool)
	path := filepath.Join(r.dir, tool)

	r.logger.DebugContext(ctx, "running tool", "tool", name, "args", args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = r.env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		r.metrics.RecordTool(ctx, name, cvdotel.StatusSuccess)
		return &Outcome{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	}

	r.metrics.RecordTool(ctx, name, cvdotel.StatusFailed)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("run %s: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		outcome := &Outcome{
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
		}
		return outcome, &ToolError{
			Tool:     name,
			ExitCode: outcome.ExitCode,
			Stdout:   outcome.Stdout,
			Stderr:   outcome.Stderr,
		}
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s not found in %s", ErrToolNotFound, name, r.dir)
	default:
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
}
