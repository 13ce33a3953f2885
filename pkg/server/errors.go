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

package server

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/serializer"
)

// Error codes used by the server itself.
const (
	ErrCodeRateLimitExceeded  = cnserrors.ErrCodeRateLimitExceeded
	ErrCodeInternalError      = cnserrors.ErrCodeInternal
	ErrCodeServiceUnavailable = cnserrors.ErrCodeUnavailable
	ErrCodeInvalidRequest     = cnserrors.ErrCodeInvalidRequest
	ErrCodeMethodNotAllowed   = cnserrors.ErrCodeMethodNotAllowed
	ErrCodeNotFound           = cnserrors.ErrCodeNotFound
)

// ErrorResponse is the body of every error returned by the server.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

// HTTPStatusFromCode maps an error code to the HTTP status returned to
// clients.
func HTTPStatusFromCode(code cnserrors.ErrorCode) int {
	switch code {
	case cnserrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case cnserrors.ErrCodeNotFound:
		return http.StatusNotFound
	case cnserrors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case cnserrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case cnserrors.ErrCodeUnavailable, cnserrors.ErrCodeRegistryUnreachable:
		return http.StatusServiceUnavailable
	case cnserrors.ErrCodeTimeout, cnserrors.ErrCodeDiscoveryTimeout,
		cnserrors.ErrCodeReadTimeout, cnserrors.ErrCodeWriteTimeout:
		return http.StatusGatewayTimeout
	case cnserrors.ErrCodeDiscoveryTransport, cnserrors.ErrCodeDiscoveryParse,
		cnserrors.ErrCodeReadTransport, cnserrors.ErrCodeWriteTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func retryableFromCode(code cnserrors.ErrorCode) bool {
	switch code {
	case cnserrors.ErrCodeTimeout, cnserrors.ErrCodeUnavailable,
		cnserrors.ErrCodeRateLimitExceeded, cnserrors.ErrCodeInternal,
		cnserrors.ErrCodeRegistryUnreachable,
		cnserrors.ErrCodeDiscoveryTimeout, cnserrors.ErrCodeReadTimeout, cnserrors.ErrCodeWriteTimeout,
		cnserrors.ErrCodeDiscoveryTransport, cnserrors.ErrCodeReadTransport, cnserrors.ErrCodeWriteTransport:
		return true
	default:
		return false
	}
}

func mergeDetails(a, b map[string]any) map[string]any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// WriteError writes a structured error response.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code cnserrors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

// WriteErrorFromErr writes err as a structured error response. A
// StructuredError selects the status, code and message; anything else is
// reported as an internal error with fallbackMessage.
func WriteErrorFromErr(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string, extraDetails map[string]any) {
	var code cnserrors.ErrorCode
	message := fallbackMessage
	var details map[string]any

	var se *cnserrors.StructuredError
	if stderrors.As(err, &se) {
		code = se.Code
		message = se.Message
		details = se.Context
		if se.Cause != nil {
			details = mergeDetails(details, map[string]any{"error": se.Cause.Error()})
		}
	} else {
		code = cnserrors.ErrCodeInternal
		details = map[string]any{"error": err.Error()}
	}

	WriteError(w, r, HTTPStatusFromCode(code), code, message, retryableFromCode(code),
		mergeDetails(details, extraDetails))
}
