package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a ReactorError if the
// input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *ReactorError {
	if err == nil {
		return nil
	}

	var re *ReactorError
	if errors.As(err, &re) {
		return &ReactorError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       re,
			Context:     re.Context,
			Entity:      re.Entity,
			HasEntity:   re.HasEntity,
			Recoverable: re.Recoverable,
		}
	}

	return &ReactorError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeBinding || errType == ErrorTypeModel,
	}
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *ReactorError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *ReactorError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// ExtractCause follows ReactorError causes down to the innermost error.
func ExtractCause(err error) error {
	for err != nil {
		var re *ReactorError
		if !errors.As(err, &re) {
			return err
		}
		if re.Cause == nil {
			return re
		}
		err = re.Cause
	}
	return nil
}

// CollectErrors helper for common error collection patterns
func CollectErrors(errs ...error) []error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}
	return collected
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	nonNilErrs := CollectErrors(errs...)
	if len(nonNilErrs) == 0 {
		return nil
	}
	if len(nonNilErrs) == 1 {
		return nonNilErrs[0]
	}

	var messages []string
	recoverable := true
	for _, err := range nonNilErrs {
		messages = append(messages, err.Error())
		if !IsRecoverable(err) {
			recoverable = false
		}
	}

	return &ReactorError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNilErrs)),
		Cause:   errors.Join(nonNilErrs...),
		Context: map[string]interface{}{
			"error_count": len(nonNilErrs),
			"errors":      messages,
		},
		Recoverable: recoverable,
	}
}
