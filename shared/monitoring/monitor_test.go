package monitoring

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedMonitor() *Monitor {
	m := NewMonitor()
	m.now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
	return m
}

func TestMonitorLifecycle(t *testing.T) {
	m := fixedMonitor()
	assert.True(t, m.IsHealthy())
	assert.Equal(t, "No runs yet", m.GetStatusSummary())

	m.RecordSuccess("2 channels", time.Second)
	assert.True(t, m.IsHealthy())
	assert.Equal(t, "Last run: Mar 10 09:00 (2 channels)", m.GetStatusSummary())

	m.RecordPartialFailure(errors.New("one channel failed"), time.Second)
	assert.True(t, m.IsHealthy(), "partial failures keep health")

	m.RecordCriticalFailure(errors.New("quota exceeded"), time.Second)
	assert.False(t, m.IsHealthy())
	assert.Equal(t, "Last run failed: Mar 10 09:00 (quota exceeded)", m.GetStatusSummary())

	status := m.Status()
	assert.False(t, status.Healthy)
	assert.Equal(t, 2, status.Runs)
	assert.Equal(t, 1, status.Failures)
	assert.Equal(t, "quota exceeded", status.LastError)
	require.NotNil(t, status.LastRun)

	m.RecordSuccess("recovered", time.Second)
	assert.True(t, m.IsHealthy())
	assert.Empty(t, m.Status().LastError)
}

func TestHealthServer(t *testing.T) {
	m := fixedMonitor()
	server := NewHealthServer(m, 0)
	assert.Equal(t, 8080, server.port)

	get := func(path string) (int, string) {
		resp, err := server.App().Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/health")
	assert.Equal(t, 200, code)
	assert.Equal(t, "OK - No runs yet", body)

	m.RecordCriticalFailure(errors.New("boom"), time.Second)
	code, body = get("/health")
	assert.Equal(t, 503, code)
	assert.Contains(t, body, "Service unhealthy - Last run failed")

	code, body = get("/status")
	assert.Equal(t, 200, code)
	var status Status
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.False(t, status.Healthy)
	assert.Equal(t, 1, status.Failures)
	assert.Equal(t, "boom", status.LastError)
}
