package toolrunner

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNotFound is returned when the tool executable does not exist
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolFailed is returned when the tool exits with a non-zero status
	ErrToolFailed = errors.New("tool failed")
)

// ToolError describes a tool that ran and exited unsuccessfully.
type ToolError struct {
	Tool     string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with code %d, stdout: %s, stderr: %s",
		e.Tool, e.ExitCode, e.Stdout, e.Stderr)
}

func (e *ToolError) Unwrap() error {
	return ErrToolFailed
}
