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
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cnserrors "github.com/iot-lab/coapdash/pkg/errors"
	"github.com/iot-lab/coapdash/pkg/node"
)

func TestHTTPLister(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    []node.ID
		wantErr bool
	}{
		{"nodes", http.StatusOK, `{"nodes":["2001:db8::1","2001:db8::2"]}`, []node.ID{"2001:db8::1", "2001:db8::2"}, false},
		{"empty", http.StatusOK, `{"nodes":[]}`, []node.ID{}, false},
		{"missing field", http.StatusOK, `{}`, nil, true},
		{"malformed", http.StatusOK, `{"nodes":`, nil, true},
		{"wrong type", http.StatusOK, `{"nodes":"a"}`, nil, true},
		{"server error", http.StatusInternalServerError, `{"nodes":["a"]}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/nodes", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewHTTPLister(srv.URL + "/nodes").ListNodes(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, cnserrors.ErrCodeRegistryUnreachable, cnserrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPListerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	uri := srv.URL + "/nodes"
	srv.Close()

	_, err := NewHTTPLister(uri).ListNodes(context.Background())
	require.Error(t, err)
	assert.Equal(t, cnserrors.ErrCodeRegistryUnreachable, cnserrors.CodeOf(err))
}

func TestHTTPListerDefaultURI(t *testing.T) {
	l := NewHTTPLister("")
	assert.Equal(t, "http://localhost:8000/nodes", l.URI)
	assert.Equal(t, "http(http://localhost:8000/nodes)", l.String())
}

func TestConsulLister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health/service/coap-node" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "1", r.URL.Query().Get("passing"))
		assert.Equal(t, "sensors", r.URL.Query().Get("tag"))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Consul-Index", "7")
		w.Header().Set("X-Consul-Lastcontact", "0")
		w.Header().Set("X-Consul-Knownleader", "true")
		_, _ = w.Write([]byte(`[
			{"Node": {"Node": "n1", "Address": "10.0.0.1"}, "Service": {"Service": "coap-node", "Address": "2001:db8::1", "Port": 0}},
			{"Node": {"Node": "n2", "Address": "10.0.0.2"}, "Service": {"Service": "coap-node", "Address": "", "Port": 5684}},
			{"Node": {"Node": "n3", "Address": ""}, "Service": {"Service": "coap-node", "Address": ""}}
		]`))
	}))
	defer srv.Close()

	l, err := NewConsulLister(strings.TrimPrefix(srv.URL, "http://"), "", "coap-node", "sensors")
	require.NoError(t, err)

	got, err := l.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []node.ID{"2001:db8::1", "10.0.0.2:5684"}, got)
}

func TestConsulListerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no cluster leader", http.StatusInternalServerError)
	}))
	defer srv.Close()

	l, err := NewConsulLister(strings.TrimPrefix(srv.URL, "http://"), "", "coap-node", "")
	require.NoError(t, err)

	_, err = l.ListNodes(context.Background())
	require.Error(t, err)
	assert.Equal(t, cnserrors.ErrCodeRegistryUnreachable, cnserrors.CodeOf(err))
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func TestStore(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	log := &eventLog{}

	s := NewStore(2 * time.Minute)
	s.Notify = log.add

	assert.True(t, s.Touch("b", base))
	assert.True(t, s.Touch("a", base.Add(30*time.Second)))
	assert.False(t, s.Touch("b", base.Add(time.Minute)))

	assert.Equal(t, []node.ID{"a", "b"}, s.List(base.Add(time.Minute)))

	// b was refreshed at +1m, a was seen at +30s
	now := base.Add(2*time.Minute + 45*time.Second)
	assert.Equal(t, []node.ID{"b"}, s.List(now))
	assert.Equal(t, []node.ID{"a"}, s.Expire(now))
	assert.Empty(t, s.Expire(now))
	assert.Equal(t, []node.ID{"b"}, s.List(now))

	assert.True(t, s.Touch("a", now), "expired node rejoins as new")

	assert.Equal(t, []Event{
		{Kind: EventNew, Node: "b"},
		{Kind: EventNew, Node: "a"},
		{Kind: EventOut, Node: "a"},
		{Kind: EventNew, Node: "a"},
	}, log.all())
}

func TestStoreDefaults(t *testing.T) {
	s := NewStore(0)
	assert.Equal(t, 120*time.Second, s.MaxAge)

	s.Touch("a", time.Now())
	ids, err := s.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []node.ID{"a"}, ids)
}

func TestStoreEventsFollowMembershipOrder(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	log := &eventLog{}

	s := NewStore(time.Minute)
	s.Notify = func(e Event) {
		// widen the window between the state change and delivery
		time.Sleep(time.Microsecond)
		log.add(e)
	}

	const rounds = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range rounds {
			s.Touch("a", base)
		}
	}()
	go func() {
		defer wg.Done()
		for range rounds {
			s.Expire(base.Add(time.Hour))
		}
	}()
	wg.Wait()

	events := log.all()
	require.NotEmpty(t, events)
	for i, e := range events {
		want := EventNew
		if i%2 == 1 {
			want = EventOut
		}
		require.Equal(t, want, e.Kind, "event %d out of order: %v", i, events)
	}

	present := len(s.List(base)) == 1
	assert.Equal(t, present, events[len(events)-1].Kind == EventNew)
}

func TestStoreRunExpiry(t *testing.T) {
	s := NewStore(time.Millisecond)
	out := make(chan Event, 1)
	s.Notify = func(e Event) {
		if e.Kind == EventOut {
			out <- e
		}
	}
	s.Touch("a", time.Now().Add(-time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunExpiry(ctx, 5*time.Millisecond)

	select {
	case e := <-out:
		assert.Equal(t, node.ID("a"), e.Node)
	case <-time.After(2 * time.Second):
		t.Fatal("node was not expired")
	}
}

func TestAliveListener(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	joined := make(chan Event, 1)
	s := NewStore(time.Minute)
	s.Notify = func(e Event) { joined <- e }

	l := &AliveListener{Store: s}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, pc) }()

	conn, err := net.Dial("udp", pc.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("alive"))
	require.NoError(t, err)

	select {
	case e := <-joined:
		assert.Equal(t, EventNew, e.Kind)
		assert.Equal(t, node.ID("127.0.0.1"), e.Node)
	case <-time.After(2 * time.Second):
		t.Fatal("datagram was not recorded")
	}
	assert.Equal(t, []node.ID{"127.0.0.1"}, s.List(time.Now()))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestHandler(t *testing.T) {
	s := NewStore(time.Minute)
	s.Touch("2001:db8::2", time.Now())
	s.Touch("2001:db8::1", time.Now())

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Handler(s)(rec, httptest.NewRequest(http.MethodGet, "/nodes", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var list NodeList
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Equal(t, []string{"2001:db8::1", "2001:db8::2"}, list.Nodes)
	})

	t.Run("empty store encodes an empty list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Handler(NewStore(time.Minute))(rec, httptest.NewRequest(http.MethodGet, "/nodes", nil))
		assert.JSONEq(t, `{"nodes":[]}`, rec.Body.String())
	})

	t.Run("post", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Handler(s)(rec, httptest.NewRequest(http.MethodPost, "/nodes", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("round trip through the lister", func(t *testing.T) {
		srv := httptest.NewServer(Handler(s))
		defer srv.Close()

		ids, err := NewHTTPLister(srv.URL).ListNodes(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []node.ID{"2001:db8::1", "2001:db8::2"}, ids)
	})
}
