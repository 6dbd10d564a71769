package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"unsupported media type", UnsupportedMediaType("gif"), codes.InvalidArgument},
		{"validation", fmt.Errorf("draft: %w", ErrValidation), codes.InvalidArgument},
		{"not found", NewAppError("NOT_FOUND", "job", ErrNotFound), codes.NotFound},
		{"recognition", fmt.Errorf("page 2: %w", ErrRecognitionFailed), codes.FailedPrecondition},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", fmt.Errorf("render: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"status passes through", status.Error(codes.Unavailable, "down"), codes.Unavailable},
		{"internal", NewAppError("JOURNAL_DISABLED", "export", ErrInternal), codes.Internal},
		{"other", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)))
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestAppError(t *testing.T) {
	err := UnsupportedMediaType("gif")
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	assert.Contains(t, err.Error(), `"gif"`)
	assert.Contains(t, err.Error(), "pdf, png, jpeg, bmp, tiff")
	assert.Nil(t, WrapError(nil, "x"))
	assert.ErrorIs(t, WrapError(ErrDatabase, "insert"), ErrDatabase)
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", " ", Required).
		Field("doc", []byte{}, Required).
		Field("doc", []byte("abcd"), MaxBytes(2)).
		Field("fmt", "json", OneOf("json", "text")).
		Field("scale", 0.0, Between(1, 2))
	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)

	err := ValidateAndReturnError(v)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	assert.NotEmpty(t, id)
	ctx2, id2 := EnsureRequestID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, ctx, ctx2)
	assert.Equal(t, "abc", RequestIDFromContext(WithRequestID(context.Background(), "abc")))
}
