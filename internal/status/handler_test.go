package status

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ovdlink/internal/metrics"
	"ovdlink/internal/session"
	"ovdlink/internal/tcp"
)

// MockProvider mocks the Provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Status() session.Status {
	args := m.Called()
	return args.Get(0).(session.Status)
}

func (m *MockProvider) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(h, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Connected").Return(true)

	w := get(setupRouter(NewHandler(provider, nil)), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["connected"])
	provider.AssertExpectations(t)
}

func TestGetStatus(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Status").Return(session.Status{
		SessionID:   "sess-1",
		ListenAddr:  "127.0.0.1:21213",
		Link:        tcp.State{Connected: true, ClientID: "client-1", Accepted: 3},
		QueueDepths: map[string]int{"head": 2, "waist": 0},
		Layers:      []session.LayerStatus{{Eye: "left", Width: 4, Height: 2}},
	})

	w := get(setupRouter(NewHandler(provider, nil)), "/status")

	require.Equal(t, http.StatusOK, w.Code)
	var st session.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "sess-1", st.SessionID)
	assert.True(t, st.Link.Connected)
	assert.Equal(t, uint64(3), st.Link.Accepted)
	assert.Equal(t, 2, st.QueueDepths["head"])
	assert.Equal(t, uint32(4), st.Layers[0].Width)
	provider.AssertExpectations(t)
}

func TestGetQueues(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Status").Return(session.Status{QueueDepths: map[string]int{"left_input": 7}})

	w := get(setupRouter(NewHandler(provider, nil)), "/status/queues")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"queue_depths":{"left_input":7}}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.SetConnected(true)
	m.FrameSent(44)

	w := get(setupRouter(NewHandler(new(MockProvider), m.Registry())), "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ovdlink_link_connected 1")
	assert.Contains(t, w.Body.String(), "ovdlink_frames_sent_bytes_total 44")
}

func TestMetricsDisabled(t *testing.T) {
	w := get(setupRouter(NewHandler(new(MockProvider), nil)), "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := new(MockProvider)
	provider.On("Connected").Return(false)

	srv := NewServer("127.0.0.1:0", NewHandler(provider, nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
