package predict

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dermrisk/backend/internal/models"
	"github.com/dermrisk/backend/internal/scoring"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

const (
	msgInvalidJSON = "Invalid JSON in request body"
	msgServerError = "An internal error occurred while computing the prediction"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the prediction routes on api. protect wraps the scoring
// endpoints only; the probe stays public.
func (h *Handler) Register(api *mux.Router, protect ...mux.MiddlewareFunc) {
	api.HandleFunc("/predict", h.Health).Methods("GET")

	scoringRoutes := api.PathPrefix("").Subrouter()
	scoringRoutes.Use(protect...)
	scoringRoutes.HandleFunc("/predict", h.Predict).Methods("POST")
	scoringRoutes.HandleFunc("/predict/explain", h.Explain).Methods("POST")
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Message:      "CTCL Risk Prediction API is running",
		Status:       "healthy",
		ModelVersion: h.service.ModelVersion(),
		Operations:   []string{"POST /api/predict", "POST /api/predict/explain", "GET /api/predict"},
	})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	record, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Predict(r.Context(), record)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	record, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Explain(r.Context(), record)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeRecord reads a single JSON object from the body. Anything else,
// including an empty body or a bare null, is a transport error.
func (h *Handler) decodeRecord(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	record, err := DecodeRecord(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Debug().Err(err).Msg("[predict] rejected request body")
		h.service.RecordRejection(r.Context(), models.ErrorTypeJSON)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error: msgInvalidJSON,
			Type:  models.ErrorTypeJSON,
		})
		return nil, false
	}
	return record, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *scoring.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:      "Validation failed",
			Type:       models.ErrorTypeValidation,
			Details:    verr.Details(),
			Violations: verr.Violations,
		})
		return
	}

	log.Error().Err(err).Msg("[predict] prediction failed")
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
		Error: msgServerError,
		Type:  models.ErrorTypeServer,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
