// Copyright (c) 2026, The coapdash Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeTimeout indicates an operation exceeded its time limit.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an internal system error.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeInvalidRequest indicates malformed or invalid input.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeUnavailable indicates a service or resource is temporarily unavailable.
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeMethodNotAllowed indicates the HTTP method is not supported by a route.
	ErrCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	// ErrCodeRateLimitExceeded indicates the caller exceeded the request rate limit.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// Poll cycle failures. Each one is contained at the boundary named in its
// comment: registry failures abort the cycle, everything else only ends
// the affected node's sequence.
const (
	// ErrCodeRegistryUnreachable indicates the node list could not be fetched
	// or decoded. Cycle level.
	ErrCodeRegistryUnreachable ErrorCode = "REGISTRY_UNREACHABLE"
	// ErrCodeDiscoveryTimeout indicates a node did not answer resource discovery in time.
	ErrCodeDiscoveryTimeout ErrorCode = "DISCOVERY_TIMEOUT"
	// ErrCodeDiscoveryTransport indicates resource discovery failed below the payload level.
	ErrCodeDiscoveryTransport ErrorCode = "DISCOVERY_TRANSPORT"
	// ErrCodeDiscoveryParse indicates the discovery payload could not be decoded.
	ErrCodeDiscoveryParse ErrorCode = "DISCOVERY_PARSE"
	// ErrCodeReadTimeout indicates a node did not answer a value read in time.
	ErrCodeReadTimeout ErrorCode = "READ_TIMEOUT"
	// ErrCodeReadTransport indicates a value read failed below the payload level.
	ErrCodeReadTransport ErrorCode = "READ_TRANSPORT"
	// ErrCodeWriteTimeout indicates a node did not answer an actuator write in time.
	ErrCodeWriteTimeout ErrorCode = "WRITE_TIMEOUT"
	// ErrCodeWriteTransport indicates an actuator write failed below the payload level.
	ErrCodeWriteTransport ErrorCode = "WRITE_TRANSPORT"
)

// StructuredError provides structured error information for better observability.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or an empty code if there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether any StructuredError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}

// IsTimeout reports whether err carries one of the timeout codes.
func IsTimeout(err error) bool {
	switch CodeOf(err) {
	case ErrCodeTimeout, ErrCodeDiscoveryTimeout, ErrCodeReadTimeout, ErrCodeWriteTimeout:
		return true
	default:
		return false
	}
}
