package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/api/handlers"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/model"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/config"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/logger"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
	dataDir := t.TempDir()
	predictor := model.NewPredictor(dataDir, log.Zerolog())
	return NewRouter(handlers.NewPredictHandler(predictor, dataDir, log), log)
}

func TestRouter_Health(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
}

func TestRouter_PredictRequiresPOST(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/predict", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_PredictWithoutModel(t *testing.T) {
	router := testRouter(t)

	body := bytes.NewBufferString(`{"feature_snapshot":{"rsi14":55}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":false`)
}

func TestRouter_ModelEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
