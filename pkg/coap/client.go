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

package coap

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/udp"
	udpclient "github.com/plgd-dev/go-coap/v3/udp/client"

	"github.com/iot-lab/coapdash/pkg/defaults"
	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
)

// Response is a decoded CoAP response.
type Response struct {
	Code codes.Code

	// Format is the response content format. HasFormat is false when the
	// node did not send one.
	Format    message.MediaType
	HasFormat bool

	Body []byte
}

// Success reports whether the response code is in the 2.xx class.
func (r *Response) Success() bool {
	return r != nil && uint8(r.Code)>>5 == 2
}

// IsCBOR reports whether the payload was declared as application/cbor.
func (r *Response) IsCBOR() bool {
	return r != nil && r.HasFormat && r.Format == message.AppCBOR
}

// Transport issues CoAP requests against nodes.
//
// Errors returned by a Transport carry ErrCodeTimeout when the request
// exceeded its deadline and ErrCodeUnavailable otherwise.
type Transport interface {
	Get(ctx context.Context, id node.ID, path string) (*Response, error)
	Put(ctx context.Context, id node.ID, path string, format message.MediaType, body []byte) (*Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithPort sets the port joined to node IDs that carry none.
func WithPort(port int) Option {
	return func(c *Client) {
		c.port = port
	}
}

// WithRequestTimeout bounds every request issued by the client.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is a Transport over UDP. It dials a fresh connection per request,
// so requests to the same node are only serialized by their callers.
type Client struct {
	port    int
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient returns a UDP CoAP client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		port:    defaults.CoAPPort,
		timeout: defaults.CoAPRequestTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.port <= 0 {
		c.port = defaults.CoAPPort
	}
	return c
}

// Get issues a confirmable GET for path on the node.
func (c *Client) Get(ctx context.Context, id node.ID, path string) (*Response, error) {
	return c.do(ctx, id, "GET", path, func(ctx context.Context, cc *udpclient.Conn) (*pool.Message, error) {
		return cc.Get(ctx, path)
	})
}

// Put issues a confirmable PUT for path on the node with body as payload.
func (c *Client) Put(ctx context.Context, id node.ID, path string, format message.MediaType, body []byte) (*Response, error) {
	return c.do(ctx, id, "PUT", path, func(ctx context.Context, cc *udpclient.Conn) (*pool.Message, error) {
		return cc.Put(ctx, path, format, bytes.NewReader(body))
	})
}

func (c *Client) do(ctx context.Context, id node.ID, method, path string, fn func(context.Context, *udpclient.Conn) (*pool.Message, error)) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	addr := id.Address(c.port)
	start := time.Now()

	cc, err := udp.Dial(addr)
	if err != nil {
		requestsTotal.WithLabelValues(method, resultTransport).Inc()
		return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeUnavailable,
			"failed to dial node", err, map[string]any{"node": string(id), "address": addr})
	}
	defer func() {
		if cerr := cc.Close(); cerr != nil {
			c.logger.Debug("closing coap connection", "node", string(id), "error", cerr)
		}
	}()

	msg, err := fn(ctx, cc)
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		if isTimeout(ctx, err) {
			requestsTotal.WithLabelValues(method, resultTimeout).Inc()
			return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeTimeout,
				fmt.Sprintf("%s %s timed out", method, path), err, map[string]any{"node": string(id)})
		}
		requestsTotal.WithLabelValues(method, resultTransport).Inc()
		return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeUnavailable,
			fmt.Sprintf("%s %s failed", method, path), err, map[string]any{"node": string(id)})
	}

	resp := &Response{Code: msg.Code()}
	if f, ferr := msg.ContentFormat(); ferr == nil {
		resp.Format = f
		resp.HasFormat = true
	}
	if msg.Body() != nil {
		body, berr := msg.ReadBody()
		if berr != nil {
			requestsTotal.WithLabelValues(method, resultTransport).Inc()
			return nil, cnserrors.WrapWithContext(cnserrors.ErrCodeUnavailable,
				"failed to read response body", berr, map[string]any{"node": string(id)})
		}
		resp.Body = body
	}

	requestsTotal.WithLabelValues(method, resultOK).Inc()
	c.logger.Debug("coap request",
		"node", string(id),
		"method", method,
		"path", path,
		"code", resp.Code.String(),
		"duration", time.Since(start))

	return resp, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}
