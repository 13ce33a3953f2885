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

package snapshotter

import (
	"context"
	"time"

	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
)

// State is a sequencer state.
type State string

const (
	StateDiscovering State = "discovering"
	StateIterating   State = "iterating"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition is reported every time a sequencer enters a state. Index is
// the endpoint position while iterating.
type Transition struct {
	Node  node.ID
	State State
	Index int
	Path  string
	At    time.Time
}

// Sequencer polls one node: discovery, then every readable endpoint
// strictly one after the other.
type Sequencer struct {
	Resolver Discoverer
	Reader   ValueReader

	// OnState, if set, observes every transition. It is called from the
	// sequencer's goroutine.
	OnState func(Transition)
}

// Run polls the node of rec and fills rec. It returns the error that moved
// the sequencer to StateFailed, or nil once it reached StateDone. Values
// read before a failure stay in rec.
//
// Run never outlives ctx: when ctx ends while a request is pending, the
// request is abandoned and reported as a discovery or read timeout.
func (s *Sequencer) Run(ctx context.Context, rec *node.Record) error {
	s.enter(Transition{Node: rec.ID, State: StateDiscovering})

	d, err := await(ctx, func(ctx context.Context) (node.Discovery, error) {
		return s.Resolver.Discover(ctx, rec.ID)
	})
	if err != nil {
		return s.fail(rec, deadline(err, cnserrors.ErrCodeDiscoveryTimeout, "resource discovery"))
	}
	rec.Board = d.Board

	for i, e := range d.Readable() {
		s.enter(Transition{Node: rec.ID, State: StateIterating, Index: i, Path: e.Path})

		v, err := await(ctx, func(ctx context.Context) (string, error) {
			return s.Reader.ReadValue(ctx, rec.ID, e.Path)
		})
		if err != nil {
			return s.fail(rec, deadline(err, cnserrors.ErrCodeReadTimeout, "read of "+e.Name()))
		}
		rec.Set(e.Name(), v)
	}

	s.enter(Transition{Node: rec.ID, State: StateDone})
	return nil
}

func (s *Sequencer) fail(rec *node.Record, err error) error {
	rec.Fail(err)
	s.enter(Transition{Node: rec.ID, State: StateFailed})
	return err
}

func (s *Sequencer) enter(t Transition) {
	if s.OnState == nil {
		return
	}
	t.At = time.Now()
	s.OnState(t)
}

// errAbandoned marks a request given up on because its context ended.
type errAbandoned struct {
	cause error
}

func (e *errAbandoned) Error() string { return "request abandoned: " + e.cause.Error() }
func (e *errAbandoned) Unwrap() error { return e.cause }

// await runs fn and waits for it or for ctx, whichever ends first. A
// transport that ignores ctx is left behind; its late result is dropped.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, &errAbandoned{cause: ctx.Err()}
	}
}

// deadline converts an abandoned request into the phase's timeout error.
// Errors the collectors already classified pass through unchanged.
func deadline(err error, code cnserrors.ErrorCode, what string) error {
	if _, ok := err.(*errAbandoned); ok {
		return cnserrors.Wrap(code, what+" exceeded the node deadline", err)
	}
	return err
}
