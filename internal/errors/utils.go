package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a SyllabusError if
// the input is not already one.
func Wrap(err error, errType ErrorType, code, message string) *SyllabusError {
	if err == nil {
		return nil
	}

	var se *SyllabusError
	if errors.As(err, &se) {
		return &SyllabusError{
			Type:      errType,
			Code:      code,
			Message:   message,
			Cause:     se,
			Context:   se.Context,
			Component: se.Component,
			FilePath:  se.FilePath,
		}
	}

	return &SyllabusError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapContent wraps an error about a specific content file.
func WrapContent(err error, code, message, filePath string) *SyllabusError {
	se := Wrap(err, ErrorTypeContent, code, message)
	if se != nil {
		se.FilePath = filePath
	}
	return se
}

// WrapValidation wraps an error as a validation error
func WrapValidation(err error, code, message string) *SyllabusError {
	return Wrap(err, ErrorTypeValidation, code, message)
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *SyllabusError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *SyllabusError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *SyllabusError {
	return Wrap(err, ErrorTypeInternal, code, message)
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name errors keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

// New re-exports errors.New.
func New(text string) error { return errors.New(text) }
