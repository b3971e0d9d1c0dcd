package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/model"
	"github.com/gorozooo/my-stock-portfolio-sub001/pkg/logger"
)

// PredictHandler serves single-candidate inference to the ranking
// caller. An unavailable model is a normal response (ok=false, HTTP 200),
// never a 5xx: the caller always has a non-ML fallback.
type PredictHandler struct {
	predictor *model.Predictor
	dataDir   string
	logger    *logger.Logger
}

// NewPredictHandler creates a predict handler.
func NewPredictHandler(predictor *model.Predictor, dataDir string, log *logger.Logger) *PredictHandler {
	return &PredictHandler{
		predictor: predictor,
		dataDir:   dataDir,
		logger:    log,
	}
}

// Predict handles POST /api/predict.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var input contracts.PredictionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.predictor.Predict(input)
	if !result.OK {
		h.logger.WithField("reason", result.Reason).Debug("prediction unavailable")
	}

	respondJSON(w, http.StatusOK, result)
}

// ModelInfo handles GET /api/model: metadata about the currently
// published snapshot.
func (h *PredictHandler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	snap, reason := model.LoadLatest(h.dataDir)
	if snap == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"ok":     false,
			"reason": reason,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"snapshot_dir": snap.Dir,
		"feature_cols": snap.FeatureCols,
		"metrics":      snap.Metrics,
	})
}
