package testreport

import (
	"errors"
	"fmt"
)

// RuntimeError is an operational failure that exits with code 2, such as
// an unreadable input stream or an invalid options file
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError wraps err as a RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError means the reported run had failures (exit code 1)
type TestFailureError struct {
	Failures int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %d failing", e.Failures)
}

// NewTestFailureError creates a TestFailureError
func NewTestFailureError(failures int) *TestFailureError {
	return &TestFailureError{Failures: failures}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
