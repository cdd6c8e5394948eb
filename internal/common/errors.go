package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrImageProcessing = errors.New("image processing failed")
	ErrProvider        = errors.New("provider call failed")
	ErrSchema          = errors.New("schema validation failed")
	ErrConfiguration   = errors.New("invalid configuration")
	ErrInternal        = errors.New("internal error")
)

// Error codes used by AppError across the pipeline.
const (
	CodeImageProcessing = "IMAGE_PROCESSING"
	CodeProvider        = "PROVIDER_ERROR"
	CodeSchema          = "SCHEMA_ERROR"
	CodeConfiguration   = "CONFIG_ERROR"
	CodeInternal        = "PIPELINE_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func ImageProcessingError(file string, cause error) *AppError {
	return NewAppError(CodeImageProcessing, fmt.Sprintf("cannot process %s", file), cause)
}

func ConfigurationError(message string) *AppError {
	return NewAppError(CodeConfiguration, message, ErrConfiguration)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
