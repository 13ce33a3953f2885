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
	"context"
	"net/http"
	"time"

	"github.com/iot-lab/coapdash/pkg/defaults"
	"github.com/iot-lab/coapdash/pkg/serializer"
)

// ReadinessCheck reports whether a dependency the server needs is usable.
type ReadinessCheck func(ctx context.Context) error

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status    string    `json:"status" yaml:"status"`
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	Version   string    `json:"version,omitempty" yaml:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (s *Server) healthResponse(status string) HealthResponse {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	resp := HealthResponse{
		Status:    status,
		Name:      s.config.Name,
		Version:   s.config.Version,
		Timestamp: time.Now().UTC(),
	}
	if !started.IsZero() {
		resp.Uptime = time.Since(started).Truncate(time.Second).String()
	}
	return resp
}

// handleHealth is the liveness probe. It never consults dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, s.healthResponse("healthy"))
}

// handleReady reports ready once the server is listening and every
// readiness check passes.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	ready := s.ready
	checks := s.readinessChecks
	s.mu.RUnlock()

	if !ready {
		resp := s.healthResponse("not_ready")
		resp.Reason = "service is initializing"
		serializer.RespondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaults.ReadinessCheckTimeout)
	defer cancel()

	for name, check := range checks {
		if err := check(ctx); err != nil {
			resp := s.healthResponse("not_ready")
			resp.Reason = name + ": " + err.Error()
			serializer.RespondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	serializer.RespondJSON(w, http.StatusOK, s.healthResponse("ready"))
}
