package api

import (
	"context"
	"encoding/json"
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
	"github.com/iot-lab/coapdash/pkg/registry"
	"github.com/iot-lab/coapdash/pkg/snapshotter"
)

type stubSnapshotter struct {
	snap *snapshotter.Snapshot
	err  error
}

func (s *stubSnapshotter) RunCycle(context.Context) (*snapshotter.Snapshot, error) {
	return s.snap, s.err
}

type sentCommand struct {
	id    node.ID
	value string
}

type stubCommander struct {
	mu   sync.Mutex
	sent []sentCommand
	err  error
}

func (c *stubCommander) Send(_ context.Context, id node.ID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentCommand{id, value})
	return c.err
}

func testSnapshot() *snapshotter.Snapshot {
	a := node.NewRecord("2001:db8::1")
	a.Board = "samr21-xpro"
	a.Set("temperature", "21")
	a.Set(node.ActuatorName, "1")

	b := node.NewRecord("2001:db8::2")
	b.Fail(cnserrors.New(cnserrors.ErrCodeDiscoveryTimeout, "no answer"))

	return &snapshotter.Snapshot{
		ID:      "cycle-1",
		Created: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Records: []node.Record{*a, *b},
	}
}

func failedSnapshot() (*snapshotter.Snapshot, error) {
	err := cnserrors.New(cnserrors.ErrCodeRegistryUnreachable, "connection refused")
	return &snapshotter.Snapshot{
		ID:  "cycle-2",
		Err: &node.Failure{Code: cnserrors.ErrCodeRegistryUnreachable, Message: err.Error()},
	}, err
}

func TestHandleView(t *testing.T) {
	t.Run("renders nodes", func(t *testing.T) {
		d := &Dashboard{Snapshotter: &stubSnapshotter{snap: testSnapshot()}}
		w := httptest.NewRecorder()
		d.HandleView(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		body := w.Body.String()
		assert.Contains(t, body, "2001:db8::1")
		assert.Contains(t, body, "temperature: 21")
		assert.Contains(t, body, "samr21-xpro")
		assert.Contains(t, body, "DISCOVERY_TIMEOUT")
		assert.Contains(t, body, "/v1/nodes/1/led?state=1")
		assert.NotContains(t, body, "led: 1")
	})

	t.Run("non numeric led value", func(t *testing.T) {
		rec := node.NewRecord("2001:db8::3")
		rec.Set(node.ActuatorName, "blink")
		snap := &snapshotter.Snapshot{ID: "c", Records: []node.Record{*rec}}

		d := &Dashboard{Snapshotter: &stubSnapshotter{snap: snap}}
		w := httptest.NewRecorder()
		d.HandleView(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<td>blink\n")
	})

	t.Run("empty registry", func(t *testing.T) {
		d := &Dashboard{Snapshotter: &stubSnapshotter{snap: &snapshotter.Snapshot{ID: "c"}}}
		w := httptest.NewRecorder()
		d.HandleView(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No nodes registered.")
	})

	t.Run("registry failure", func(t *testing.T) {
		snap, err := failedSnapshot()
		d := &Dashboard{Snapshotter: &stubSnapshotter{snap: snap, err: err}}
		w := httptest.NewRecorder()
		d.HandleView(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
		assert.NotContains(t, w.Body.String(), "No nodes registered.")
	})

	t.Run("method not allowed", func(t *testing.T) {
		d := &Dashboard{Snapshotter: &stubSnapshotter{snap: testSnapshot()}}
		w := httptest.NewRecorder()
		d.HandleView(w, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
	})
}

func TestHandleSnapshot(t *testing.T) {
	d := &Dashboard{Snapshotter: &stubSnapshotter{snap: testSnapshot()}}

	w := httptest.NewRecorder()
	d.HandleSnapshot(w, httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil))
	require.Equal(t, http.StatusOK, w.Code)

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.True(t, strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`))

	var got snapshotter.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Records, 2)
	assert.Equal(t, node.ID("2001:db8::1"), got.Records[0].ID)
	assert.Equal(t, "21", got.Records[0].Values["temperature"])

	t.Run("matching etag", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil)
		req.Header.Set("If-None-Match", `"other", `+etag)
		w := httptest.NewRecorder()
		d.HandleSnapshot(w, req)
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("changed records", func(t *testing.T) {
		snap := testSnapshot()
		snap.Records[0].Set("temperature", "22")
		d := &Dashboard{Snapshotter: &stubSnapshotter{snap: snap}}

		req := httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil)
		req.Header.Set("If-None-Match", etag)
		w := httptest.NewRecorder()
		d.HandleSnapshot(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEqual(t, etag, w.Header().Get("ETag"))
	})

	t.Run("registry failure", func(t *testing.T) {
		snap, err := failedSnapshot()
		d := &Dashboard{Snapshotter: &stubSnapshotter{snap: snap, err: err}}
		w := httptest.NewRecorder()
		d.HandleSnapshot(w, httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(cnserrors.ErrCodeRegistryUnreachable), resp["code"])
		assert.Equal(t, true, resp["retryable"])
	})
}

func TestRecordsTagIgnoresCycleIdentity(t *testing.T) {
	a := testSnapshot()
	b := testSnapshot()
	b.ID = "another"
	b.Created = time.Now()

	ta, err := recordsTag(a.Records)
	require.NoError(t, err)
	tb, err := recordsTag(b.Records)
	require.NoError(t, err)
	assert.Equal(t, ta, tb)
	assert.Len(t, ta, 34)
}

func TestMatchesETag(t *testing.T) {
	assert.False(t, matchesETag("", `"a"`))
	assert.True(t, matchesETag(`"a"`, `"a"`))
	assert.True(t, matchesETag(`W/"a"`, `"a"`))
	assert.True(t, matchesETag(`*`, `"a"`))
	assert.True(t, matchesETag(`"b", "a"`, `"a"`))
	assert.False(t, matchesETag(`"b"`, `"a"`))
}

func ledRequest(method, index, state string) *http.Request {
	target := "/v1/nodes/" + index + "/led"
	if state != "" {
		target += "?state=" + state
	}
	req := httptest.NewRequest(method, target, nil)
	req.SetPathValue("index", index)
	return req
}

func TestHandleLED(t *testing.T) {
	ids := []node.ID{"2001:db8::1", "2001:db8::2"}
	lister := registry.ListerFunc(func(context.Context) ([]node.ID, error) {
		return ids, nil
	})

	tests := []struct {
		name       string
		req        *http.Request
		lister     registry.Lister
		last       *snapshotter.Snapshot
		sendErr    error
		wantStatus int
		wantSent   []sentCommand
	}{
		{
			name:       "first node from registry",
			req:        ledRequest(http.MethodGet, "0", "1"),
			lister:     lister,
			wantStatus: http.StatusOK,
			wantSent:   []sentCommand{{"2001:db8::1", "1"}},
		},
		{
			name:       "post is accepted",
			req:        ledRequest(http.MethodPost, "1", "0"),
			lister:     lister,
			wantStatus: http.StatusOK,
			wantSent:   []sentCommand{{"2001:db8::2", "0"}},
		},
		{
			name: "last snapshot wins over registry",
			req:  ledRequest(http.MethodGet, "0", "1"),
			lister: registry.ListerFunc(func(context.Context) ([]node.ID, error) {
				return []node.ID{"elsewhere"}, nil
			}),
			last:       testSnapshot(),
			wantStatus: http.StatusOK,
			wantSent:   []sentCommand{{"2001:db8::1", "1"}},
		},
		{
			name:       "index out of range",
			req:        ledRequest(http.MethodGet, "2", "1"),
			lister:     lister,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "negative index",
			req:        ledRequest(http.MethodGet, "-1", "1"),
			lister:     lister,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non numeric index",
			req:        ledRequest(http.MethodGet, "abc", "1"),
			lister:     lister,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing state",
			req:        ledRequest(http.MethodGet, "0", ""),
			lister:     lister,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong method",
			req:        ledRequest(http.MethodDelete, "0", "1"),
			lister:     lister,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name: "registry unreachable",
			req:  ledRequest(http.MethodGet, "0", "1"),
			lister: registry.ListerFunc(func(context.Context) ([]node.ID, error) {
				return nil, cnserrors.New(cnserrors.ErrCodeRegistryUnreachable, "refused")
			}),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "write timeout",
			req:        ledRequest(http.MethodGet, "0", "1"),
			lister:     lister,
			sendErr:    cnserrors.New(cnserrors.ErrCodeWriteTimeout, "no answer"),
			wantStatus: http.StatusGatewayTimeout,
			wantSent:   []sentCommand{{"2001:db8::1", "1"}},
		},
		{
			name:       "write transport",
			req:        ledRequest(http.MethodGet, "0", "1"),
			lister:     lister,
			sendErr:    cnserrors.New(cnserrors.ErrCodeWriteTransport, "refused"),
			wantStatus: http.StatusBadGateway,
			wantSent:   []sentCommand{{"2001:db8::1", "1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &stubCommander{err: tt.sendErr}
			d := &Dashboard{Registry: tt.lister, Actuator: cmd}
			if tt.last != nil {
				require.NoError(t, d.Serialize(context.Background(), tt.last))
			}

			w := httptest.NewRecorder()
			d.HandleLED(w, tt.req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantSent, cmd.sent)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
			}
		})
	}
}

func TestHandleLEDWithoutNodeSource(t *testing.T) {
	d := &Dashboard{Actuator: &stubCommander{}}
	w := httptest.NewRecorder()
	d.HandleLED(w, ledRequest(http.MethodGet, "0", "1"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSerializeKeepsLastListedSnapshot(t *testing.T) {
	d := &Dashboard{}
	assert.Nil(t, d.Last())

	good := testSnapshot()
	require.NoError(t, d.Serialize(context.Background(), good))
	assert.Same(t, good, d.Last())

	failed, _ := failedSnapshot()
	require.NoError(t, d.Serialize(context.Background(), failed))
	assert.Same(t, good, d.Last())

	assert.Error(t, d.Serialize(context.Background(), "not a snapshot"))
}

func TestRoutes(t *testing.T) {
	d := &Dashboard{}
	routes := d.Routes()
	assert.Contains(t, routes, "/{$}")
	assert.Contains(t, routes, "/v1/snapshot")
	assert.Contains(t, routes, "/v1/nodes/{index}/led")
	assert.NotContains(t, routes, "/v1/live")

	d.Live = http.NotFoundHandler()
	assert.Contains(t, d.Routes(), "/v1/live")
}
