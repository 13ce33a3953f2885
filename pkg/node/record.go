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

package node

import (
	"sort"
	"strconv"

	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
)

// Failure describes why a node's sequence ended early.
type Failure struct {
	Code    cnserrors.ErrorCode `json:"code" yaml:"code"`
	Message string              `json:"message" yaml:"message"`
}

// Record holds the values read from one node during one cycle.
//
// A record is written only by its node's sequencer and read only after the
// cycle completed.
type Record struct {
	ID     ID                `json:"id" yaml:"id"`
	Board  string            `json:"board,omitempty" yaml:"board,omitempty"`
	Values map[string]string `json:"values" yaml:"values"`

	// LEDValue is the integer parse of the actuator endpoint, if it was read.
	LEDValue *int `json:"ledValue,omitempty" yaml:"ledValue,omitempty"`

	// Failure is set when the node's sequence ended in the failed state.
	// Values then holds whatever was read before the failure.
	Failure *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// NewRecord returns an empty record for id.
func NewRecord(id ID) *Record {
	return &Record{
		ID:     id,
		Values: make(map[string]string),
	}
}

// Set stores the value read from the named endpoint. Reading the actuator
// endpoint also caches its integer parse.
func (r *Record) Set(name, value string) {
	r.Values[name] = value
	if name != ActuatorName {
		return
	}
	if v, err := strconv.Atoi(value); err == nil {
		r.LEDValue = &v
	} else {
		r.LEDValue = nil
	}
}

// Get returns the value read from the named endpoint.
func (r *Record) Get(name string) (string, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// LED returns the actuator state for display: the integer value when it
// parsed, the raw value otherwise, or "" when it was not read.
func (r *Record) LED() string {
	if r.LEDValue != nil {
		return strconv.Itoa(*r.LEDValue)
	}
	return r.Values[ActuatorName]
}

// Fail marks the record as failed with err.
func (r *Record) Fail(err error) {
	code := cnserrors.CodeOf(err)
	if code == "" {
		code = cnserrors.ErrCodeInternal
	}
	r.Failure = &Failure{Code: code, Message: err.Error()}
}

// Failed reports whether the node's sequence ended early.
func (r *Record) Failed() bool {
	return r.Failure != nil
}

// Names returns the endpoint names that have a value, sorted.
func (r *Record) Names() []string {
	names := make([]string, 0, len(r.Values))
	for k := range r.Values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() Record {
	out := Record{
		ID:     r.ID,
		Board:  r.Board,
		Values: make(map[string]string, len(r.Values)),
	}
	for k, v := range r.Values {
		out.Values[k] = v
	}
	if r.LEDValue != nil {
		v := *r.LEDValue
		out.LEDValue = &v
	}
	if r.Failure != nil {
		f := *r.Failure
		out.Failure = &f
	}
	return out
}
