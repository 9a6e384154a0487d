package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeContent    ErrorType = "content"
	ErrorTypeProvider   ErrorType = "provider"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// SyllabusError is a structured error type with context.
type SyllabusError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	FilePath  string
}

// Error implements the error interface.
func (e *SyllabusError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SyllabusError) Unwrap() error {
	return e.Cause
}

// Is matches on Type and Code, so the sentinel values below work with
// errors.Is regardless of message or cause.
func (e *SyllabusError) Is(target error) bool {
	var t *SyllabusError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SyllabusError) WithContext(key string, value interface{}) *SyllabusError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile records the content file the error is about.
func (e *SyllabusError) WithFile(filePath string) *SyllabusError {
	e.FilePath = filePath

	return e
}

// WithComponent adds component context.
func (e *SyllabusError) WithComponent(component string) *SyllabusError {
	e.Component = component

	return e
}

// Common error codes.
const (
	ErrCodeCourseNotFound  = "ERR_COURSE_NOT_FOUND"
	ErrCodeLessonNotFound  = "ERR_LESSON_NOT_FOUND"
	ErrCodeInvalidFileName = "ERR_INVALID_FILENAME"
	ErrCodeInvalidSlug     = "ERR_INVALID_SLUG"
	ErrCodeOrphanSubtopic  = "ERR_ORPHAN_SUBTOPIC"
	ErrCodeFrontMatter     = "ERR_FRONT_MATTER"
	ErrCodeMissingIndex    = "ERR_MISSING_INDEX"
	ErrCodeInvalidPath     = "ERR_INVALID_PATH"
	ErrCodePathTraversal   = "ERR_PATH_TRAVERSAL"
	ErrCodeInvalidOrigin   = "ERR_INVALID_ORIGIN"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeProvider        = "ERR_PROVIDER"
	ErrCodeRenderFailed    = "ERR_RENDER_FAILED"
	ErrCodeBuildOutput     = "ERR_BUILD_OUTPUT"
	ErrCodeInternalError   = "ERR_INTERNAL"
)

// Sentinels for errors.Is checks.
var (
	ErrCourseNotFound  = &SyllabusError{Type: ErrorTypeContent, Code: ErrCodeCourseNotFound}
	ErrLessonNotFound  = &SyllabusError{Type: ErrorTypeContent, Code: ErrCodeLessonNotFound}
	ErrInvalidFileName = &SyllabusError{Type: ErrorTypeValidation, Code: ErrCodeInvalidFileName}
	ErrInvalidSlug     = &SyllabusError{Type: ErrorTypeValidation, Code: ErrCodeInvalidSlug}
	ErrOrphanSubtopic  = &SyllabusError{Type: ErrorTypeContent, Code: ErrCodeOrphanSubtopic}
	ErrFrontMatter     = &SyllabusError{Type: ErrorTypeContent, Code: ErrCodeFrontMatter}
	ErrMissingIndex    = &SyllabusError{Type: ErrorTypeContent, Code: ErrCodeMissingIndex}
	ErrPathTraversal   = &SyllabusError{Type: ErrorTypeSecurity, Code: ErrCodePathTraversal}
)

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *SyllabusError {
	return &SyllabusError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewContentError creates an error about the course tree on disk.
func NewContentError(code, message string, cause error) *SyllabusError {
	return &SyllabusError{Type: ErrorTypeContent, Code: code, Message: message, Cause: cause}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *SyllabusError {
	return &SyllabusError{Type: ErrorTypeSecurity, Code: code, Message: message}
}

// NewProviderError creates an identity provider error.
func NewProviderError(message string, cause error) *SyllabusError {
	return &SyllabusError{Type: ErrorTypeProvider, Code: ErrCodeProvider, Message: message, Cause: cause}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *SyllabusError {
	return &SyllabusError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *SyllabusError {
	return &SyllabusError{Type: ErrorTypeConfig, Code: code, Message: message}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *SyllabusError {
	return &SyllabusError{Type: ErrorTypeInternal, Code: code, Message: message, Cause: cause}
}

// ErrPathTraversalAttempt creates a path traversal security error.
func ErrPathTraversalAttempt(path string) *SyllabusError {
	return NewSecurityError(ErrCodePathTraversal, "path traversal attempt: "+path)
}

// ErrInvalidOriginValue creates an invalid origin security error.
func ErrInvalidOriginValue(origin string) *SyllabusError {
	return NewSecurityError(ErrCodeInvalidOrigin, "invalid origin: "+origin)
}

// TypeOf returns the ErrorType of the first SyllabusError in err's chain,
// or ErrorTypeInternal.
func TypeOf(err error) ErrorType {
	var se *SyllabusError
	if errors.As(err, &se) {
		return se.Type
	}
	return ErrorTypeInternal
}

// HTTPStatus maps an error to the status code the server answers with.
func HTTPStatus(err error) int {
	var se *SyllabusError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case ErrCodeCourseNotFound, ErrCodeLessonNotFound, ErrCodeInvalidSlug, ErrCodeInvalidFileName:
		return http.StatusNotFound
	}
	switch se.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeSecurity:
		return http.StatusForbidden
	case ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
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

// Handle logs err at a level matching its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var se *SyllabusError
	if !errors.As(err, &se) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch se.Type {
	case ErrorTypeSecurity:
		h.logger.Error(ctx, se, "Security error occurred",
			"type", se.Type, "code", se.Code, "component", se.Component)
	case ErrorTypeValidation, ErrorTypeContent:
		h.logger.Warn(ctx, se, "Content error occurred",
			"type", se.Type, "code", se.Code, "file", se.FilePath)
	default:
		h.logger.Error(ctx, se, "Error occurred",
			"type", se.Type, "code", se.Code, "component", se.Component)
	}
}
