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

// Package coaptest provides an in-memory coap.Transport for tests.
package coaptest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"

	"github.com/iot-lab/coapdash/pkg/coap"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
)

// Call is one request observed by the fake.
type Call struct {
	Node   node.ID
	Method string
	Path   string
	Body   []byte
	Start  time.Time
	End    time.Time
}

// Handler answers one request.
type Handler func(ctx context.Context, c Call) (*coap.Response, error)

type route struct {
	id     node.ID
	method string
	path   string
}

// Fake is a coap.Transport answering from registered handlers. Requests
// without a handler get a 4.04 response. It is safe for concurrent use.
type Fake struct {
	mu       sync.Mutex
	handlers map[route]Handler
	calls    []Call
}

var _ coap.Transport = (*Fake)(nil)

// NewFake returns an empty fake transport.
func NewFake() *Fake {
	return &Fake{handlers: make(map[route]Handler)}
}

// Handle registers h for method and path on the node.
func (f *Fake) Handle(id node.ID, method, path string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[route{id, method, path}] = h
	return f
}

// Get implements coap.Transport.
func (f *Fake) Get(ctx context.Context, id node.ID, path string) (*coap.Response, error) {
	return f.serve(ctx, Call{Node: id, Method: "GET", Path: path})
}

// Put implements coap.Transport.
func (f *Fake) Put(ctx context.Context, id node.ID, path string, _ message.MediaType, body []byte) (*coap.Response, error) {
	return f.serve(ctx, Call{Node: id, Method: "PUT", Path: path, Body: append([]byte(nil), body...)})
}

func (f *Fake) serve(ctx context.Context, c Call) (*coap.Response, error) {
	f.mu.Lock()
	h := f.handlers[route{c.Node, c.Method, c.Path}]
	f.mu.Unlock()

	c.Start = time.Now()
	var resp *coap.Response
	var err error
	if h == nil {
		resp = &coap.Response{Code: codes.NotFound}
	} else {
		resp, err = h(ctx, c)
	}
	c.End = time.Now()

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	return resp, err
}

// Calls returns every request observed so far, in completion order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the requests sent to one node, in completion order.
func (f *Fake) CallsFor(id node.ID) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Node == id {
			out = append(out, c)
		}
	}
	return out
}

// Text answers with a text/plain 2.05 response.
func Text(body string) Handler {
	return func(context.Context, Call) (*coap.Response, error) {
		return &coap.Response{
			Code:      codes.Content,
			Format:    message.TextPlain,
			HasFormat: true,
			Body:      []byte(body),
		}, nil
	}
}

// Code answers with an empty response carrying code.
func Code(code codes.Code) Handler {
	return func(context.Context, Call) (*coap.Response, error) {
		return &coap.Response{Code: code}, nil
	}
}

// JSON answers with v encoded as application/json.
func JSON(v any) Handler {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return func(context.Context, Call) (*coap.Response, error) {
		return &coap.Response{Code: codes.Content, Format: message.AppJSON, HasFormat: true, Body: b}, nil
	}
}

// CBOR answers with v encoded as application/cbor.
func CBOR(v any) Handler {
	b, err := cbor.Marshal(v)
	if err != nil {
		panic(err)
	}
	return func(context.Context, Call) (*coap.Response, error) {
		return &coap.Response{Code: codes.Content, Format: message.AppCBOR, HasFormat: true, Body: b}, nil
	}
}

// Fail answers with err.
func Fail(err error) Handler {
	return func(context.Context, Call) (*coap.Response, error) {
		return nil, err
	}
}

// Unreachable fails like a transport that lost the exchange.
func Unreachable() Handler {
	return Fail(cnserrors.New(cnserrors.ErrCodeUnavailable, "connection refused"))
}

// Hang never answers; it returns a timeout error once ctx is done.
func Hang() Handler {
	return func(ctx context.Context, _ Call) (*coap.Response, error) {
		<-ctx.Done()
		return nil, cnserrors.Wrap(cnserrors.ErrCodeTimeout, "request timed out", ctx.Err())
	}
}

// Delay runs h after d, or times out if ctx ends first.
func Delay(d time.Duration, h Handler) Handler {
	return func(ctx context.Context, c Call) (*coap.Response, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return h(ctx, c)
		case <-ctx.Done():
			return nil, cnserrors.Wrap(cnserrors.ErrCodeTimeout, "request timed out", ctx.Err())
		}
	}
}

// Discovery is a discovery payload builder for JSON and CBOR handlers.
type Discovery struct {
	Board string          `json:"board" cbor:"board"`
	Paths []DiscoveryPath `json:"paths" cbor:"paths"`
}

// DiscoveryPath is one entry of a Discovery payload.
type DiscoveryPath struct {
	Path        string `json:"path" cbor:"path"`
	Method      string `json:"method" cbor:"method"`
	DeviceClass string `json:"deviceClass,omitempty" cbor:"deviceClass,omitempty"`
}
