package health

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeed struct{ connected bool }

func (s stubFeed) IsConnected() bool { return s.connected }

func TestHandleHealth(t *testing.T) {
	s := NewServer(Config{ServiceName: "crosscheck-scan", Version: "1.2.3"})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, 200, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "crosscheck-scan", resp.Service)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHandleReadyNotReady(t *testing.T) {
	s := NewServer(Config{ServiceName: "crosscheck-scan"})

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest("GET", "/ready", nil))

	assert.Equal(t, 503, rec.Code)
}

func TestHandleReadyWithFeed(t *testing.T) {
	s := NewServer(Config{ServiceName: "crosscheck-scan", Feed: stubFeed{connected: false}})
	s.SetReady(true)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest("GET", "/ready", nil))

	// A down quote feed is reported but never fails readiness
	require.Equal(t, 200, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "disconnected", resp.Checks["quote_feed"])
}

func TestDefaultPort(t *testing.T) {
	s := NewServer(Config{ServiceName: "crosscheck-scan"})
	assert.Equal(t, "8081", s.port)
}
