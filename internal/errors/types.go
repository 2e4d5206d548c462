// Package errors defines the structured error taxonomy used across lenskit.
//
// Every failure surfaced by the reactive core is a *ReactorError carrying a
// category, a stable code and, where it applies, the entity the failure is
// attached to. Callers match on codes with errors.Is against the sentinel
// values below or with the IsXxx helpers.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeBinding  ErrorType = "binding"
	ErrorTypeModel    ErrorType = "model"
	ErrorTypeTree     ErrorType = "tree"
	ErrorTypeBuild    ErrorType = "build"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeInternal ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeMissingModel     = "ERR_MISSING_MODEL"
	ErrCodeDuplicateModel   = "ERR_DUPLICATE_MODEL"
	ErrCodeDowncastFailure  = "ERR_DOWNCAST_FAILURE"
	ErrCodeBuilderPanic     = "ERR_BUILDER_PANIC"
	ErrCodeModelNotFound    = "ERR_MODEL_NOT_FOUND"
	ErrCodeEntityNotFound   = "ERR_ENTITY_NOT_FOUND"
	ErrCodeInvalidParent    = "ERR_INVALID_PARENT"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeThemeInvalid     = "ERR_THEME_INVALID"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeInboxFull        = "ERR_INBOX_FULL"
	ErrCodeUnknownComponent = "ERR_UNKNOWN_COMPONENT"
)

// ReactorError is a structured error type with context.
type ReactorError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Entity      uint32
	HasEntity   bool
	Recoverable bool
}

// Error implements the error interface.
func (e *ReactorError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.HasEntity {
		parts = append(parts, fmt.Sprintf("entity:%d", e.Entity))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ReactorError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *ReactorError) Is(target error) bool {
	var t *ReactorError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ReactorError) WithContext(key string, value interface{}) *ReactorError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithEntity attaches the entity the failure belongs to.
func (e *ReactorError) WithEntity(id uint32) *ReactorError {
	e.Entity = id
	e.HasEntity = true

	return e
}

// Sentinels for errors.Is matching. Only Type and Code take part in the
// comparison.
var (
	ErrMissingModel    = &ReactorError{Type: ErrorTypeBinding, Code: ErrCodeMissingModel}
	ErrDuplicateModel  = &ReactorError{Type: ErrorTypeModel, Code: ErrCodeDuplicateModel}
	ErrDowncastFailure = &ReactorError{Type: ErrorTypeModel, Code: ErrCodeDowncastFailure}
	ErrBuilderPanic    = &ReactorError{Type: ErrorTypeBuild, Code: ErrCodeBuilderPanic}
	ErrModelNotFound   = &ReactorError{Type: ErrorTypeModel, Code: ErrCodeModelNotFound}
	ErrEntityNotFound  = &ReactorError{Type: ErrorTypeTree, Code: ErrCodeEntityNotFound}
	ErrInvalidParent   = &ReactorError{Type: ErrorTypeTree, Code: ErrCodeInvalidParent}
	ErrConfigInvalid   = &ReactorError{Type: ErrorTypeConfig, Code: ErrCodeConfigInvalid}
	ErrThemeInvalid    = &ReactorError{Type: ErrorTypeConfig, Code: ErrCodeThemeInvalid}
)

// Error creation functions

// NewMissingModelError reports a binding whose lens source model is not on
// the ancestor path of the declaring node. The binding stays inert.
func NewMissingModelError(model, lens string, node uint32) *ReactorError {
	e := &ReactorError{
		Type:        ErrorTypeBinding,
		Code:        ErrCodeMissingModel,
		Message:     fmt.Sprintf("no model %s on the ancestor path for lens %s", model, lens),
		Recoverable: true,
	}
	return e.WithEntity(node).WithContext("model", model).WithContext("lens", lens)
}

// NewDuplicateModelError reports a rejected attachment of a model type that
// already lives at node.
func NewDuplicateModelError(model string, node uint32) *ReactorError {
	e := &ReactorError{
		Type:        ErrorTypeModel,
		Code:        ErrCodeDuplicateModel,
		Message:     "model already attached: " + model,
		Recoverable: true,
	}
	return e.WithEntity(node).WithContext("model", model)
}

// NewDowncastError reports a stored value whose dynamic type does not match
// the requested model type.
func NewDowncastError(want, got string, node uint32) *ReactorError {
	e := &ReactorError{
		Type:        ErrorTypeModel,
		Code:        ErrCodeDowncastFailure,
		Message:     fmt.Sprintf("cannot view %s as %s", got, want),
		Recoverable: false,
	}
	return e.WithEntity(node).WithContext("want", want).WithContext("got", got)
}

// NewBuilderPanicError wraps a value recovered from a panicking builder.
func NewBuilderPanicError(recovered interface{}, node uint32) *ReactorError {
	cause, ok := recovered.(error)
	if !ok {
		cause = fmt.Errorf("%v", recovered)
	}
	e := &ReactorError{
		Type:        ErrorTypeBuild,
		Code:        ErrCodeBuilderPanic,
		Message:     "binding builder panicked",
		Cause:       cause,
		Recoverable: false,
	}
	return e.WithEntity(node)
}

// NewModelNotFoundError reports a failed lookup of a model type at node.
func NewModelNotFoundError(model string, node uint32) *ReactorError {
	e := &ReactorError{
		Type:        ErrorTypeModel,
		Code:        ErrCodeModelNotFound,
		Message:     "model not found: " + model,
		Recoverable: true,
	}
	return e.WithEntity(node)
}

// NewEntityNotFoundError reports an operation on a dead or unknown entity.
func NewEntityNotFoundError(node uint32) *ReactorError {
	e := &ReactorError{
		Type:        ErrorTypeTree,
		Code:        ErrCodeEntityNotFound,
		Message:     "entity not found",
		Recoverable: true,
	}
	return e.WithEntity(node)
}

// NewInvalidParentError reports a tree insertion under an unknown parent or
// into the node's own subtree.
func NewInvalidParentError(child, parent uint32) *ReactorError {
	e := &ReactorError{
		Type:        ErrorTypeTree,
		Code:        ErrCodeInvalidParent,
		Message:     fmt.Sprintf("cannot add entity %d under %d", child, parent),
		Recoverable: true,
	}
	return e.WithEntity(child).WithContext("parent", parent)
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ReactorError {
	return &ReactorError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *ReactorError {
	return &ReactorError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ReactorError {
	return &ReactorError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var re *ReactorError
	if errors.As(err, &re) {
		return re.Recoverable
	}

	return false
}

// IsFatal reports errors the host loop must not continue past.
func IsFatal(err error) bool {
	var re *ReactorError
	if errors.As(err, &re) {
		return !re.Recoverable
	}

	return err != nil
}

// CodeOf returns the code of the first ReactorError in err's chain.
func CodeOf(err error) string {
	var re *ReactorError
	if errors.As(err, &re) {
		return re.Code
	}

	return ""
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err at a level matching its category.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var re *ReactorError
	if !errors.As(err, &re) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	fields := []interface{}{"type", re.Type, "code", re.Code}
	if re.HasEntity {
		fields = append(fields, "entity", re.Entity)
	}

	switch {
	case re.Recoverable:
		h.logger.Warn(ctx, re, "Recoverable error occurred", fields...)
	default:
		h.logger.Error(ctx, re, "Error occurred", fields...)
	}
}
