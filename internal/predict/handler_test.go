package predict

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dermrisk/backend/internal/audit"
	"github.com/dermrisk/backend/internal/auth"
	"github.com/dermrisk/backend/internal/middleware"
	"github.com/dermrisk/backend/internal/models"
	"github.com/dermrisk/backend/internal/scoring"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureRecorder) Record(e audit.Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return true
}

// brokenScorer validates normally but fails every computation.
type brokenScorer struct {
	*scoring.Engine
}

func (brokenScorer) Score(scoring.ObservationSet) (scoring.Assessment, error) {
	return scoring.Assessment{}, errors.New("weights table corrupted at 0xdeadbeef")
}

func newRouter(t *testing.T, scorer scoring.Scorer, rec audit.Recorder, protect ...mux.MiddlewareFunc) *mux.Router {
	t.Helper()
	metrics, err := NewMetrics(noop.NewMeterProvider())
	require.NoError(t, err)

	svc := NewService(scorer, scoring.ReferenceVersion, rec, metrics)
	r := mux.NewRouter()
	NewHandler(svc).Register(r.PathPrefix("/api").Subrouter(), protect...)
	return r
}

func record(v bool) map[string]any {
	out := make(map[string]any, scoring.IndicatorCount)
	for _, ind := range scoring.Indicators() {
		out[string(ind)] = v
	}
	return out
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestPredictAllFalse(t *testing.T) {
	rec := &captureRecorder{}
	r := newRouter(t, scoring.DefaultEngine(), rec)

	rr := do(t, r, http.MethodPost, "/api/predict", mustJSON(t, record(false)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp models.PredictionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.InDelta(t, 1/(1+math.Exp(1.8)), resp.RiskScore, 1e-9)
	assert.Equal(t, 8, resp.FeaturesProcessed)
	assert.Equal(t, 0, resp.FeaturesSelected)
	assert.Equal(t, models.StatusSuccess, resp.Status)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, scoring.ReferenceVersion, rec.entries[0].ModelVersion)
	assert.Equal(t, resp.RiskScore, rec.entries[0].RiskScore)
}

func TestPredictAllTrue(t *testing.T) {
	r := newRouter(t, scoring.DefaultEngine(), nil)

	rr := do(t, r, http.MethodPost, "/api/predict", mustJSON(t, record(true)))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.PredictionResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.InDelta(t, 1/(1+math.Exp(-4)), resp.RiskScore, 1e-9)
	assert.Equal(t, 8, resp.FeaturesSelected)
}

func TestPredictIgnoresUnknownFields(t *testing.T) {
	r := newRouter(t, scoring.DefaultEngine(), nil)

	body := record(false)
	body["patient_age"] = 61
	body["notes"] = "follow up"
	rr := do(t, r, http.MethodPost, "/api/predict", mustJSON(t, body))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPredictHugeNumbers(t *testing.T) {
	r := newRouter(t, scoring.DefaultEngine(), nil)
	fields := strings.TrimSuffix(mustJSON(t, record(true)), "}")

	rr := do(t, r, http.MethodPost, "/api/predict", fields+`,"lab_value":1e400}`)
	assert.Equal(t, http.StatusOK, rr.Code, "unknown fields are ignored whatever their value")

	body := record(true)
	delete(body, "multiple_biopsies")
	rr = do(t, r, http.MethodPost, "/api/predict",
		strings.TrimSuffix(mustJSON(t, body), "}")+`,"multiple_biopsies":1e400}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.ErrorTypeValidation, resp.Type)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, scoring.MultipleBiopsies, resp.Violations[0].Field)
	assert.Equal(t, scoring.ProblemNotBoolean, resp.Violations[0].Problem)
}

func TestPredictValidationError(t *testing.T) {
	rec := &captureRecorder{}
	r := newRouter(t, scoring.DefaultEngine(), rec)

	body := record(true)
	delete(body, "xerosis")
	body["pruritus"] = "true"

	rr := do(t, r, http.MethodPost, "/api/predict", mustJSON(t, body))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.ErrorTypeValidation, resp.Type)
	assert.Equal(t, []string{
		"missing required feature 'xerosis'",
		"feature 'pruritus' must be a boolean value",
	}, resp.Details)
	require.Len(t, resp.Violations, 2)
	assert.Equal(t, scoring.ProblemMissing, resp.Violations[0].Problem)
	assert.Empty(t, rec.entries)
}

func TestPredictMalformedBody(t *testing.T) {
	r := newRouter(t, scoring.DefaultEngine(), nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"truncated", `{"multiple_biopsies": true`},
		{"not json", "multiple_biopsies=true"},
		{"null", "null"},
		{"array", "[true, false]"},
		{"string", `"hello"`},
		{"trailing", `{} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, r, http.MethodPost, "/api/predict", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)

			var resp models.ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, models.ErrorTypeJSON, resp.Type)
			assert.Equal(t, msgInvalidJSON, resp.Error)
		})
	}
}

func TestPredictServerErrorHidesDetail(t *testing.T) {
	rec := &captureRecorder{}
	r := newRouter(t, brokenScorer{scoring.DefaultEngine()}, rec)

	rr := do(t, r, http.MethodPost, "/api/predict", mustJSON(t, record(true)))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "0xdeadbeef")

	var resp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.ErrorTypeServer, resp.Type)
	assert.Equal(t, msgServerError, resp.Error)
	assert.Empty(t, rec.entries)
}

func TestExplain(t *testing.T) {
	r := newRouter(t, scoring.DefaultEngine(), nil)

	body := record(false)
	body["multiple_biopsies"] = true
	body["failed_steroids"] = true

	rr := do(t, r, http.MethodPost, "/api/predict/explain", mustJSON(t, body))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.ExplainResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, scoring.ReferenceVersion, resp.ModelVersion)
	assert.Equal(t, 2, resp.FeaturesSelected)
	assert.Equal(t, 8, resp.FeaturesProcessed)
	assert.Equal(t, []string{"biopsies_failed_steroids"}, resp.Interactions)
	assert.InDelta(t, resp.Base+resp.InteractionBonus, resp.Raw, 1e-12)
	assert.InDelta(t, 0.05+0.20+0.22, resp.Base, 1e-12)
	assert.Len(t, resp.Contributions, 2)
	assert.NotEmpty(t, resp.RiskLevel)
	assert.GreaterOrEqual(t, resp.RiskScore, 0.0)
	assert.LessOrEqual(t, resp.RiskScore, 1.0)
}

func TestExplainNoInteractionsEncodesEmptyList(t *testing.T) {
	r := newRouter(t, scoring.DefaultEngine(), nil)

	rr := do(t, r, http.MethodPost, "/api/predict/explain", mustJSON(t, record(false)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"interactions":[]`)
}

func TestHealthProbe(t *testing.T) {
	r := newRouter(t, scoring.DefaultEngine(), nil)

	rr := do(t, r, http.MethodGet, "/api/predict", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp models.HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, scoring.ReferenceVersion, resp.ModelVersion)
	assert.Contains(t, resp.Operations, "POST /api/predict")
}

func TestProtectedRoutes(t *testing.T) {
	secret := []byte("handler-test-key")
	r := newRouter(t, scoring.DefaultEngine(), nil, middleware.RequireToken(secret))

	rr := do(t, r, http.MethodPost, "/api/predict", mustJSON(t, record(false)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, r, http.MethodGet, "/api/predict", "")
	assert.Equal(t, http.StatusOK, rr.Code, "probe stays public")

	token, err := auth.IssueToken(secret, "clinic-a", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(mustJSON(t, record(true))))
	req.Header.Set("Authorization", "Bearer "+token)
	ok := httptest.NewRecorder()
	r.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	r := newRouter(t, scoring.DefaultEngine(), nil)
	rr := do(t, r, http.MethodDelete, "/api/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
