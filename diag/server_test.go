package diag

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/config"
	"github.com/lixenwraith/perfgov/governor"
	"github.com/lixenwraith/perfgov/platform"
)

func newServer(t *testing.T) (*Server, *governor.Governor) {
	t.Helper()
	clk := clock.NewMock(time.Unix(0, 0))
	g, err := governor.New(config.Default(), platform.Classify(8<<30, 4), governor.Deps{Clock: clk})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	for range 10 {
		clk.Advance(16 * time.Millisecond)
		g.Tick(16 * time.Millisecond)
	}
	return New("127.0.0.1:0", g, zap.NewNop()), g
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) governor.Report {
	t.Helper()
	var r governor.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newServer(t)
	w := do(t, s, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "perfgov_quality_tier ")
	assert.Contains(t, body, "perfgov_frame_fps_avg ")
	assert.Contains(t, body, `perfgov_quality_tier_name{value="medium"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestServer_Status(t *testing.T) {
	s, _ := newServer(t)
	w := do(t, s, http.MethodGet, "/status", "")

	require.Equal(t, http.StatusOK, w.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "medium", snap["quality.tier_name"])
	assert.EqualValues(t, 10, snap["engine.ticks"])
}

func TestServer_GovernorReport(t *testing.T) {
	s, _ := newServer(t)
	w := do(t, s, http.MethodGet, "/governor", "")

	require.Equal(t, http.StatusOK, w.Code)
	r := decode(t, w)
	assert.Equal(t, int64(10), r.Frame)
	assert.Equal(t, "mid", r.DeviceClass)
	assert.Equal(t, "medium", r.Tier)
	assert.True(t, r.Adaptive)
}

func TestServer_SetTier(t *testing.T) {
	s, g := newServer(t)

	w := do(t, s, http.MethodPost, "/governor/tier", `{"tier":"low"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "low", decode(t, w).Tier)
	assert.Equal(t, "low", g.Status().Tier)

	w = do(t, s, http.MethodPost, "/governor/tier", `{"tier":"ultra"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/governor/tier", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_SetAdaptive(t *testing.T) {
	s, _ := newServer(t)

	w := do(t, s, http.MethodPost, "/governor/adaptive", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode(t, w).Adaptive)

	w = do(t, s, http.MethodPost, "/governor/adaptive", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_StartStop(t *testing.T) {
	s, _ := newServer(t)
	require.NoError(t, s.Start())
	defer s.Stop(t.Context())

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestModule_DisabledByDefault(t *testing.T) {
	app := fxtest.New(t,
		fx.Supply(config.Default(), zap.NewNop()),
		governor.Module(),
		Module(),
	)
	app.RequireStart().RequireStop()
}
