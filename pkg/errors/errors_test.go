package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeNotFound, "resource not found")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "resource not found" {
		t.Errorf("expected message 'resource not found', got %s", err.Message)
	}
	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeReadTransport, "read failed", cause)

	if err.Code != ErrCodeReadTransport {
		t.Errorf("expected code %s, got %s", ErrCodeReadTransport, err.Code)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped")
	}
}

func TestWrapWithContext(t *testing.T) {
	err := WrapWithContext(ErrCodeDiscoveryTimeout, "discovery timed out", context.DeadlineExceeded, map[string]any{
		"node": "fd00::1",
		"path": "/.well-known/core",
	})

	if err.Code != ErrCodeDiscoveryTimeout {
		t.Errorf("expected code %s, got %s", ErrCodeDiscoveryTimeout, err.Code)
	}
	if err.Context == nil {
		t.Fatal("expected context to be set")
	}
	if err.Context["node"] != "fd00::1" {
		t.Errorf("expected node to be fd00::1")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded to be wrapped")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StructuredError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(ErrCodeNotFound, "not found"),
			expected: "[NOT_FOUND] not found",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeRegistryUnreachable, "failed", errors.New("connection refused")),
			expected: "[REGISTRY_UNREACHABLE] failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{"structured", New(ErrCodeReadTimeout, "late"), ErrCodeReadTimeout},
		{"wrapped by fmt", fmt.Errorf("node a: %w", New(ErrCodeDiscoveryParse, "bad json")), ErrCodeDiscoveryParse},
		{"outermost wins", Wrap(ErrCodeRegistryUnreachable, "outer", New(ErrCodeTimeout, "inner")), ErrCodeRegistryUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeTimeout, "inner")
	err := fmt.Errorf("cycle: %w", Wrap(ErrCodeRegistryUnreachable, "outer", inner))

	if !IsCode(err, ErrCodeRegistryUnreachable) {
		t.Error("expected outer code to match")
	}
	if !IsCode(err, ErrCodeTimeout) {
		t.Error("expected inner code to match")
	}
	if IsCode(err, ErrCodeReadTransport) {
		t.Error("unexpected match for absent code")
	}
	if IsCode(nil, ErrCodeTimeout) {
		t.Error("nil error should not match")
	}
}

func TestIsTimeout(t *testing.T) {
	timeouts := []ErrorCode{ErrCodeTimeout, ErrCodeDiscoveryTimeout, ErrCodeReadTimeout, ErrCodeWriteTimeout}
	for _, code := range timeouts {
		if !IsTimeout(New(code, "x")) {
			t.Errorf("expected %s to be a timeout", code)
		}
	}
	others := []ErrorCode{ErrCodeReadTransport, ErrCodeWriteTransport, ErrCodeDiscoveryParse, ErrCodeRegistryUnreachable}
	for _, code := range others {
		if IsTimeout(New(code, "x")) {
			t.Errorf("expected %s not to be a timeout", code)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(ErrCodeInternal, "wrapped", cause)

	unwrapped := err.Unwrap()
	if !errors.Is(unwrapped, cause) {
		t.Errorf("expected unwrapped error to be original cause")
	}

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should work with Unwrap")
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ErrCodeNotFound,
		ErrCodeTimeout,
		ErrCodeInternal,
		ErrCodeInvalidRequest,
		ErrCodeUnavailable,
		ErrCodeRegistryUnreachable,
		ErrCodeDiscoveryTimeout,
		ErrCodeDiscoveryTransport,
		ErrCodeDiscoveryParse,
		ErrCodeReadTimeout,
		ErrCodeReadTransport,
		ErrCodeWriteTimeout,
		ErrCodeWriteTransport,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if string(code) == "" {
			t.Errorf("error code should not be empty: %v", code)
		}
		if seen[code] {
			t.Errorf("duplicate error code: %v", code)
		}
		seen[code] = true
	}
}
