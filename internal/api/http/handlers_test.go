package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/resource"
	"github.com/wardenhq/warden/internal/runtime"
)

func setupRouter(t *testing.T) (*gin.Engine, *runtime.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := runtime.New(config.Default(), nil, nil)
	t.Cleanup(svc.Shutdown)

	r := gin.New()
	NewHandlers(svc).RegisterRoutes(r)
	return r, svc
}

func doRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStats(t *testing.T) {
	r, svc := setupRouter(t)
	svc.Registry.Register(resource.KindTimer, nil)

	w := doRequest(r, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["resources_total"])
	assert.Contains(t, body, "pressure")
	assert.Contains(t, body, "cleanup")
}

func TestTriggerPass(t *testing.T) {
	r, svc := setupRouter(t)
	svc.Registry.Register(resource.KindBuffer, nil)

	w := doRequest(r, http.MethodPost, "/cleanup?tier=conservative")
	require.Equal(t, http.StatusOK, w.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "conservative", result["tier"])
	assert.Equal(t, "manual", result["trigger"])
	assert.Equal(t, true, result["success"])
}

func TestTriggerPassUnknownTier(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodPost, "/cleanup?tier=nuclear")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown tier")
}

func TestTriggerPassDroppedDuringCooldown(t *testing.T) {
	r, _ := setupRouter(t)

	w := doRequest(r, http.MethodPost, "/cleanup")
	require.Equal(t, http.StatusOK, w.Code)

	// Default cooldown is 30s: an immediate second trigger is refused.
	w = doRequest(r, http.MethodPost, "/cleanup")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHistoryLimit(t *testing.T) {
	r, svc := setupRouter(t)

	_, ran := svc.Orchestrator.RunEmergency()
	require.True(t, ran)
	_, ran = svc.Orchestrator.RunEmergency()
	require.True(t, ran)

	w := doRequest(r, http.MethodGet, "/cleanup/history?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Passes []map[string]interface{} `json:"passes"`
		Total  int                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Len(t, body.Passes, 1)
}

func TestSamples(t *testing.T) {
	r, svc := setupRouter(t)
	svc.Registry.Register(resource.KindObserver, nil)
	svc.Detector.SampleNow()

	w := doRequest(r, http.MethodGet, "/leak/samples")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Samples []map[string]interface{} `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Samples, 1)

	counts, ok := body.Samples[0]["counts"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), counts["observer"])
}
