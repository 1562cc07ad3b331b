package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{name: "not found error type", errType: ErrTypeNotFound, expected: "NOT_FOUND"},
		{name: "parsing error type", errType: ErrTypeParsing, expected: "PARSING"},
		{name: "index error type", errType: ErrTypeIndexOutOfRange, expected: "INDEX_OUT_OF_RANGE"},
		{name: "validation error type", errType: ErrTypeValidation, expected: "VALIDATION"},
		{name: "storage error type", errType: ErrTypeStorage, expected: "STORAGE"},
		{name: "config error type", errType: ErrTypeConfig, expected: "CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypeNotFound,
				Message: "proteome.csv not found",
			},
			wantMessage: "[NOT_FOUND] proteome.csv not found",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeParsing,
				Message: "invalid intensity",
				Cause:   fmt.Errorf("strconv.ParseFloat: parsing \"abc\": invalid syntax"),
			},
			wantMessage: "[PARSING] invalid intensity: strconv.ParseFloat: parsing \"abc\": invalid syntax",
		},
		{
			name: "error with empty message",
			appError: &AppError{
				Type: ErrTypeValidation,
			},
			wantMessage: "[VALIDATION] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("no such file or directory")
	appErr := NewNotFoundError("run.h5", cause)

	assert.Same(t, cause, appErr.Unwrap())
	assert.True(t, errors.Is(appErr, cause))
	assert.Nil(t, NewValidationError("bad").Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	appErr := &AppError{Type: ErrTypeStorage, Message: "write failed"}

	result := appErr.WithContext("path", "out.xls")

	assert.Same(t, appErr, result)
	require.Contains(t, result.Context, "path")
	assert.Equal(t, "out.xls", result.Context["path"])
}

func TestNewIndexOutOfRangeError(t *testing.T) {
	err := NewIndexOutOfRangeError("frame", 12, 10)

	assert.Equal(t, ErrTypeIndexOutOfRange, err.Type)
	assert.Equal(t, "[INDEX_OUT_OF_RANGE] frame 12 out of range [0, 10)", err.Error())
	assert.Equal(t, 12, err.Context["index"])
	assert.Equal(t, 10, err.Context["limit"])
}

func TestHelperConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
	}{
		{name: "not found", err: NewNotFoundError("file", cause), wantType: ErrTypeNotFound},
		{name: "parsing", err: NewParsingError("bad cell", cause), wantType: ErrTypeParsing},
		{name: "validation", err: NewValidationError("bad count"), wantType: ErrTypeValidation},
		{name: "storage", err: NewStorageError("rename failed", cause), wantType: ErrTypeStorage},
		{name: "config", err: NewConfigError("bad yaml", cause), wantType: ErrTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.NotNil(t, tt.err.Context)
		})
	}
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("loading run: %w", NewNotFoundError("run.h5", nil))

	assert.True(t, IsType(wrapped, ErrTypeNotFound))
	assert.False(t, IsType(wrapped, ErrTypeParsing))
	assert.False(t, IsType(errors.New("plain"), ErrTypeNotFound))
	assert.False(t, IsType(nil, ErrTypeNotFound))
	assert.Equal(t, ErrTypeNotFound, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}
