package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/po-extract/constants"
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
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Extraction pipeline errors.
var (
	// ErrUnsupportedMediaType is returned when the declared type is outside
	// {pdf, png, jpeg, bmp, tiff}. Fatal to the request.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrRecognitionFailed is returned when a page could not be rendered or
	// recognized. Fatal to the document.
	ErrRecognitionFailed = errors.New("recognition failed")
	// ErrNoEmbeddedText means a PDF has no usable text layer; callers fall
	// back to rendering and OCR.
	ErrNoEmbeddedText = errors.New("no embedded text")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// UnsupportedMediaType builds an error matching ErrUnsupportedMediaType.
func UnsupportedMediaType(declared string) error {
	names := make([]string, len(constants.MediaTypes))
	for i, m := range constants.MediaTypes {
		names[i] = string(m)
	}
	msg := fmt.Sprintf("media type %q is not one of %s", declared, strings.Join(names, ", "))
	return NewAppError("UNSUPPORTED_MEDIA_TYPE", msg, ErrUnsupportedMediaType)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps pipeline errors onto gRPC status codes.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrUnsupportedMediaType), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, ErrRecognitionFailed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ErrInternal):
		return InternalError(err.Error())
	}
	return InternalError(err.Error())
}
