// Package apperrors defines the error kinds shared by the meshx commands.
package apperrors

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a profile, config or args file is missing.
type NotFoundError struct {
	Cause error
	Path  string
	What  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(what, path string, cause error) *NotFoundError {
	return &NotFoundError{
		What:  what,
		Path:  path,
		Cause: cause,
	}
}

// ParseError indicates a structured document could not be decoded.
type ParseError struct {
	Cause error
	Path  string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse error: %v", e.Cause)
	}
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error.
func NewParseError(path string, cause error) *ParseError {
	return &ParseError{
		Path:  path,
		Cause: cause,
	}
}

// ProductNotFoundError indicates the requested product is not in the profile.
type ProductNotFoundError struct {
	Name      string
	Available []string
}

func (e *ProductNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("product %q not found: profile declares no products", e.Name)
	}
	return fmt.Sprintf("product %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// NewProductNotFoundError creates a new product-not-found error.
func NewProductNotFoundError(name string, available []string) *ProductNotFoundError {
	return &ProductNotFoundError{
		Name:      name,
		Available: available,
	}
}

// ToolNotInstalledError indicates a required executable or python module is missing.
type ToolNotInstalledError struct {
	Cause error
	Tool  string
}

func (e *ToolNotInstalledError) Error() string {
	return fmt.Sprintf("%s is not installed or not found in PATH", e.Tool)
}

func (e *ToolNotInstalledError) Unwrap() error {
	return e.Cause
}

// NewToolNotInstalledError creates a new tool error.
func NewToolNotInstalledError(tool string, cause error) *ToolNotInstalledError {
	return &ToolNotInstalledError{
		Tool:  tool,
		Cause: cause,
	}
}

// SubprocessFailureError indicates an external tool exited unsuccessfully.
type SubprocessFailureError struct {
	Cause    error
	Command  []string
	ExitCode int
}

func (e *SubprocessFailureError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d: %v", strings.Join(e.Command, " "), e.ExitCode, e.Cause)
}

func (e *SubprocessFailureError) Unwrap() error {
	return e.Cause
}

// NewSubprocessFailureError creates a new subprocess error.
func NewSubprocessFailureError(command []string, exitCode int, cause error) *SubprocessFailureError {
	return &SubprocessFailureError{
		Command:  command,
		ExitCode: exitCode,
		Cause:    cause,
	}
}

// ValidationError indicates an invalid option or argument.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
