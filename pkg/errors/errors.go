// Package errors defines the application error type and the pipeline error taxonomy.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// Pipeline failures.
	CodeAnalysis            ErrorCode = "4101"
	CodeEnvironmentAnalysis ErrorCode = "4102"
	CodePathGeneration      ErrorCode = "4103"
	CodeAnimation           ErrorCode = "4104"
	CodeStaleGeneration     ErrorCode = "4105"

	// Collaborator failures.
	CodeDatabaseError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeLLMProviderError ErrorCode = "5005"
)

// AppError is the error type surfaced across package boundaries.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code, so sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy carrying detail.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError returns a copy wrapping err.
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAnimation, CodeStaleGeneration:
		return http.StatusConflict
	case CodeAnalysis, CodeEnvironmentAnalysis:
		return http.StatusUnprocessableEntity
	case CodePathGeneration, CodeLLMProviderError:
		return http.StatusBadGateway
	case CodeServiceUnavailable, CodeDatabaseError, CodeCacheError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "operation not allowed in current state")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrAnalysis            = New(CodeAnalysis, "scene analysis failed")
	ErrEnvironmentAnalysis = New(CodeEnvironmentAnalysis, "environment analysis failed")
	ErrPathGeneration      = New(CodePathGeneration, "camera path generation failed")
	ErrAnimation           = New(CodeAnimation, "camera animation failed")
	ErrStaleGeneration     = New(CodeStaleGeneration, "generation superseded")

	ErrDatabase = New(CodeDatabaseError, "metadata store error")
	ErrCache    = New(CodeCacheError, "metadata cache error")
)

// AnalysisError reports geometry the pipeline cannot use.
func AnalysisError(format string, args ...any) *AppError {
	return ErrAnalysis.WithDetail(fmt.Sprintf(format, args...))
}

// EnvironmentAnalysisError reports degenerate scene bounds.
func EnvironmentAnalysisError(format string, args ...any) *AppError {
	return ErrEnvironmentAnalysis.WithDetail(fmt.Sprintf(format, args...))
}

// PathGenerationError reports a failed, timed out or rejected generation. The caller may retry.
func PathGenerationError(err error, format string, args ...any) *AppError {
	return ErrPathGeneration.WithDetail(fmt.Sprintf(format, args...)).WithError(err)
}

// AnimationError reports a command validation or execution failure during playback.
func AnimationError(err error, format string, args ...any) *AppError {
	return ErrAnimation.WithDetail(fmt.Sprintf(format, args...)).WithError(err)
}

// Retryable reports whether the user can retry the same request.
func Retryable(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case CodePathGeneration, CodeLLMProviderError, CodeDatabaseError, CodeCacheError, CodeServiceUnavailable:
		return true
	}
	return false
}

// As extracts the outermost AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given code anywhere in its chain.
func IsKind(err error, code ErrorCode) bool {
	return stderrors.Is(err, &AppError{Code: code})
}

// AsAppError converts any error into an AppError.
func AsAppError(err error) *AppError {
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
