package errors

import (
	"errors"
	"fmt"
)

// ErrInterpreterNotFound marks an explicitly configured Python interpreter
// path that does not exist on disk. Nothing can proceed without a valid
// interpreter, so callers treat this as fatal.
var ErrInterpreterNotFound = errors.New("python interpreter not found")

// ParseError represents a malformed requirement string or record.
type ParseError struct {
	Input   string
	Message string
	Err     error
}

// NewParseError constructs a ParseError for the given requirement input.
func NewParseError(input, message string, err error) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &ParseError{Input: input, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Input != "" {
		return fmt.Sprintf("parse error: %q: %s", e.Input, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures manifest validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EnvironmentError represents a failure to resolve or create the target
// Python environment. These abort the whole operation since no install or
// inspection can run without an interpreter.
type EnvironmentError struct {
	Path    string
	Message string
	Err     error
}

// NewEnvironmentError constructs an EnvironmentError for the given path.
func NewEnvironmentError(path, message string, err error) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &EnvironmentError{Path: path, Message: message, Err: err}
}

func (e *EnvironmentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path != "" {
		return fmt.Sprintf("environment error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("environment error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *EnvironmentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a backend invocation that exited nonzero or
// failed to spawn.
type ExecutionError struct {
	Command  string
	ExitCode int
	Err      error
}

// NewExecutionError constructs an ExecutionError for the given command line.
func NewExecutionError(command string, exitCode int, err error) error {
	return &ExecutionError{Command: command, ExitCode: exitCode, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Command != "" {
		return fmt.Sprintf("execution error: %s: exit %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AuditError indicates the vulnerability scanner was missing or crashed.
// Callers treat it as "vulnerabilities found" when running fail-closed.
type AuditError struct {
	Tool    string
	Message string
	Err     error
}

// NewAuditError constructs an AuditError for the given tool.
func NewAuditError(tool string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &AuditError{Tool: tool, Message: message, Err: err}
}

func (e *AuditError) Error() string {
	if e == nil {
		return ""
	}
	if e.Tool != "" {
		return fmt.Sprintf("audit error [%s]: %s", e.Tool, e.Message)
	}
	return fmt.Sprintf("audit error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *AuditError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
