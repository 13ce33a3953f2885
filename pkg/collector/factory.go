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

package collector

import (
	"log/slog"

	"github.com/iot-lab/coapdash/pkg/coap"
)

// Factory creates the node-facing operations used by a poll cycle and by
// the command path.
type Factory interface {
	CreateResolver() *Resolver
	CreateReader() *Reader
	CreateActuator() *Actuator
}

// DefaultFactory creates collectors sharing one transport.
type DefaultFactory struct {
	Transport coap.Transport
	Logger    *slog.Logger
}

// NewDefaultFactory creates a factory backed by transport. A nil transport
// selects a UDP client with default settings.
func NewDefaultFactory(transport coap.Transport, logger *slog.Logger) *DefaultFactory {
	if transport == nil {
		transport = coap.NewClient(coap.WithLogger(logger))
	}
	return &DefaultFactory{
		Transport: transport,
		Logger:    logger,
	}
}

// CreateResolver creates an endpoint resolver.
func (f *DefaultFactory) CreateResolver() *Resolver {
	return &Resolver{Transport: f.Transport, Logger: f.Logger}
}

// CreateReader creates a value reader.
func (f *DefaultFactory) CreateReader() *Reader {
	return &Reader{Transport: f.Transport, Logger: f.Logger}
}

// CreateActuator creates an actuator command sender.
func (f *DefaultFactory) CreateActuator() *Actuator {
	return &Actuator{Transport: f.Transport, Logger: f.Logger}
}
