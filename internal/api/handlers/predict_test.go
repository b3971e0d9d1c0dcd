package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/model"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/config"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func newHandler(t *testing.T, dataDir string) *PredictHandler {
	t.Helper()
	log := testLogger()
	predictor := model.NewPredictor(dataDir, log.Zerolog())
	return NewPredictHandler(predictor, dataDir, log)
}

// publishSnapshot trains on synthetic rows and publishes a snapshot
// under dataDir so the handler has a model to serve.
func publishSnapshot(t *testing.T, dataDir string) {
	t.Helper()

	var rows []contracts.TrainRow
	for i := 0; i < 60; i++ {
		row := contracts.NewTrainRow()
		row.Code = "7203"
		row.TradeDate = "2026-08-01"
		row.RSI14 = float64(30 + i%40)
		if row.RSI14 > 50 {
			row.Label = "win"
			row.PL = 300
		} else {
			row.Label = "lose"
			row.PL = -150
		}
		rows = append(rows, row)
	}

	trainer := model.NewTrainer(model.TrainParams{Rounds: 30}, testLogger().Zerolog())
	snap, err := trainer.Train(rows, contracts.FeatureColumns())
	require.NoError(t, err)
	_, err = model.SaveSnapshot(dataDir, snap, time.Now())
	require.NoError(t, err)
}

func TestPredict_NoModelIsOKFalseNot5xx(t *testing.T) {
	h := newHandler(t, t.TempDir())

	body := bytes.NewBufferString(`{"feature_snapshot":{"rsi14":55}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", body)
	rec := httptest.NewRecorder()

	h.Predict(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result contracts.PredictionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.OK)
	assert.Contains(t, result.Reason, "latest_dir_not_found:")
}

func TestPredict_HappyPath(t *testing.T) {
	dataDir := t.TempDir()
	publishSnapshot(t, dataDir)
	h := newHandler(t, dataDir)

	body := bytes.NewBufferString(`{"feature_snapshot":{"rsi14":62},"score_100":72}`)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", body)
	rec := httptest.NewRecorder()

	h.Predict(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result contracts.PredictionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.OK)
	require.NotNil(t, result.PWin)
	assert.GreaterOrEqual(t, *result.PWin, 0.0)
	assert.LessOrEqual(t, *result.PWin, 1.0)
	require.NotNil(t, result.EVPred)
}

func TestPredict_BadBodyIs400(t *testing.T) {
	h := newHandler(t, t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()

	h.Predict(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelInfo_NoSnapshot(t *testing.T) {
	h := newHandler(t, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
	rec := httptest.NewRecorder()

	h.ModelInfo(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, false, payload["ok"])
	assert.Contains(t, payload["reason"], "latest_dir_not_found:")
}

func TestModelInfo_PublishedSnapshot(t *testing.T) {
	dataDir := t.TempDir()
	publishSnapshot(t, dataDir)
	h := newHandler(t, dataDir)

	req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
	rec := httptest.NewRecorder()

	h.ModelInfo(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, true, payload["ok"])
	assert.NotEmpty(t, payload["snapshot_dir"])
	assert.NotEmpty(t, payload["feature_cols"])
}
