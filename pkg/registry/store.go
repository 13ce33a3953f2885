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

package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iot-lab/coapdash/pkg/defaults"
	"github.com/iot-lab/coapdash/pkg/node"
)

// EventKind names a membership change.
type EventKind string

const (
	EventNew EventKind = "new"
	EventOut EventKind = "out"
)

// Event reports a node joining or leaving the registry.
type Event struct {
	Kind EventKind `json:"command"`
	Node node.ID   `json:"node"`
}

// Store tracks which nodes announced themselves recently. It is safe for
// concurrent use.
type Store struct {
	MaxAge time.Duration

	// Notify, if set, receives membership changes in the order they were
	// applied. It is called without the store lock held, so it may call
	// List, but it must not call Touch or Expire.
	Notify func(Event)

	mu   sync.Mutex
	seen map[node.ID]time.Time

	// notifyMu is taken before mu is released and held while events are
	// delivered.
	notifyMu sync.Mutex
}

// NewStore returns an empty store that forgets nodes after maxAge.
func NewStore(maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = defaults.RegistryNodeMaxAge
	}
	return &Store{
		MaxAge: maxAge,
		seen:   make(map[node.ID]time.Time),
	}
}

// Touch records that id was alive at now and reports whether it was unknown.
func (s *Store) Touch(id node.ID, now time.Time) bool {
	s.mu.Lock()
	_, known := s.seen[id]
	s.seen[id] = now
	if known {
		s.mu.Unlock()
		return false
	}
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(Event{Kind: EventNew, Node: id})
	s.notifyMu.Unlock()
	return true
}

// List returns the nodes seen within MaxAge of now, sorted.
func (s *Store) List(now time.Time) []node.ID {
	s.mu.Lock()
	ids := make([]node.ID, 0, len(s.seen))
	for id, last := range s.seen {
		if now.Sub(last) <= s.MaxAge {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Expire removes the nodes not seen within MaxAge of now and returns them,
// sorted.
func (s *Store) Expire(now time.Time) []node.ID {
	s.mu.Lock()
	var gone []node.ID
	for id, last := range s.seen {
		if now.Sub(last) > s.MaxAge {
			delete(s.seen, id)
			gone = append(gone, id)
		}
	}
	if len(gone) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, id := range gone {
		s.notify(Event{Kind: EventOut, Node: id})
	}
	return gone
}

// RunExpiry calls Expire every interval until ctx is done.
func (s *Store) RunExpiry(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaults.RegistryExpireInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Expire(now)
		}
	}
}

// ListNodes implements Lister, so an in-process store can feed a cycle
// directly.
func (s *Store) ListNodes(context.Context) ([]node.ID, error) {
	return s.List(time.Now()), nil
}

func (s *Store) notify(e Event) {
	if s.Notify != nil {
		s.Notify(e)
	}
}
