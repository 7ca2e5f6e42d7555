package models

import "github.com/dermrisk/backend/internal/scoring"

// StatusSuccess marks a completed prediction.
const StatusSuccess = "success"

// Error types returned in ErrorResponse.Type.
const (
	ErrorTypeJSON       = "json_error"
	ErrorTypeValidation = "validation_error"
	ErrorTypeServer     = "server_error"
	ErrorTypeAuth       = "auth_error"
)

// ── API Request/Response Types ────────────────────────────

type PredictionResponse struct {
	RiskScore         float64 `json:"risk_score" yaml:"risk_score"`
	FeaturesProcessed int     `json:"features_processed" yaml:"features_processed"`
	FeaturesSelected  int     `json:"features_selected" yaml:"features_selected"`
	Status            string  `json:"status" yaml:"status"`
}

// ExplainResponse extends PredictionResponse with the pipeline breakdown.
type ExplainResponse struct {
	PredictionResponse `yaml:",inline"`

	ModelVersion     string                 `json:"model_version" yaml:"model_version"`
	RiskLevel        string                 `json:"risk_level" yaml:"risk_level"`
	Description      string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Recommendation   string                 `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	Baseline         float64                `json:"baseline" yaml:"baseline"`
	Base             float64                `json:"base" yaml:"base"`
	InteractionBonus float64                `json:"interaction_bonus" yaml:"interaction_bonus"`
	Raw              float64                `json:"raw" yaml:"raw"`
	Interactions     []string               `json:"interactions" yaml:"interactions"`
	Contributions    []scoring.Contribution `json:"contributions" yaml:"contributions"`
}

type ErrorResponse struct {
	Error      string              `json:"error" yaml:"error"`
	Type       string              `json:"type,omitempty" yaml:"type,omitempty"`
	Details    []string            `json:"details,omitempty" yaml:"details,omitempty"`
	Violations []scoring.Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

type HealthResponse struct {
	Message      string   `json:"message" yaml:"message"`
	Status       string   `json:"status" yaml:"status"`
	ModelVersion string   `json:"model_version" yaml:"model_version"`
	Operations   []string `json:"operations" yaml:"operations"`
}
