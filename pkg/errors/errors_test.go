package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("requests >= ", "", underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "requests >= ", parseErr.Input)
	require.Equal(t, "unexpected token", parseErr.Message)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "requests")
}

func TestValidationErrorAggregatesFields(t *testing.T) {
	t.Parallel()

	err := NewValidationError("packages[1].name", "invalid package name", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "packages[1].name", validationErr.Field)
	require.Contains(t, validationErr.Message, "invalid package name")
}

func TestEnvironmentErrorMarksMissingInterpreter(t *testing.T) {
	t.Parallel()

	err := NewEnvironmentError("/opt/py/bin/python", "", ErrInterpreterNotFound)

	var envErr *EnvironmentError
	require.ErrorAs(t, err, &envErr)
	require.Equal(t, "/opt/py/bin/python", envErr.Path)
	require.True(t, stdErrors.Is(err, ErrInterpreterNotFound))
	require.Contains(t, err.Error(), "/opt/py/bin/python")
}

func TestExecutionErrorIncludesExitCode(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("command failed")
	err := NewExecutionError("python -m pip install requests", 1, underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, 1, executionErr.ExitCode)
	require.Contains(t, err.Error(), "exit 1")
	require.True(t, stdErrors.Is(err, underlying))
}

func TestAuditErrorIncludesToolName(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("not found")
	err := NewAuditError("pip-audit", underlying)

	var auditErr *AuditError
	require.ErrorAs(t, err, &auditErr)
	require.Equal(t, "pip-audit", auditErr.Tool)
	require.True(t, stdErrors.Is(err, underlying))
}
