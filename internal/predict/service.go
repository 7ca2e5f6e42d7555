package predict

import (
	"context"
	"fmt"

	"github.com/dermrisk/backend/internal/audit"
	"github.com/dermrisk/backend/internal/models"
	"github.com/dermrisk/backend/internal/scoring"
	"github.com/rs/zerolog/log"
)

type Service struct {
	scorer       scoring.Scorer
	modelVersion string
	recorder     audit.Recorder
	metrics      *Metrics
}

// NewService wires the scorer to its observers. recorder and metrics may be
// nil.
func NewService(scorer scoring.Scorer, modelVersion string, recorder audit.Recorder, metrics *Metrics) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		scorer:       scorer,
		modelVersion: modelVersion,
		recorder:     recorder,
		metrics:      metrics,
	}
}

func (s *Service) ModelVersion() string {
	return s.modelVersion
}

// Predict validates record and returns the risk result. A rejected record
// yields *scoring.ValidationError; anything else is an internal failure.
func (s *Service) Predict(ctx context.Context, record map[string]any) (models.PredictionResponse, error) {
	a, err := s.assess(ctx, record)
	if err != nil {
		return models.PredictionResponse{}, err
	}
	return predictionResponse(a), nil
}

// Explain is Predict plus the full pipeline breakdown.
func (s *Service) Explain(ctx context.Context, record map[string]any) (models.ExplainResponse, error) {
	a, err := s.assess(ctx, record)
	if err != nil {
		return models.ExplainResponse{}, err
	}

	fired := a.Fired
	if fired == nil {
		fired = []string{}
	}
	return models.ExplainResponse{
		PredictionResponse: predictionResponse(a),
		ModelVersion:       s.modelVersion,
		RiskLevel:          a.Band.Level,
		Description:        a.Band.Description,
		Recommendation:     a.Band.Recommendation,
		Baseline:           a.Baseline,
		Base:               a.Base,
		InteractionBonus:   a.InteractionBonus,
		Raw:                a.Raw,
		Interactions:       fired,
		Contributions:      a.Contributions,
	}, nil
}

// RecordRejection counts a request that never reached the scorer.
func (s *Service) RecordRejection(ctx context.Context, errorType string) {
	s.metrics.rejection(ctx, errorType)
}

func (s *Service) assess(ctx context.Context, record map[string]any) (scoring.Assessment, error) {
	obs, err := s.scorer.Validate(record)
	if err != nil {
		s.metrics.rejection(ctx, models.ErrorTypeValidation)
		return scoring.Assessment{}, err
	}

	a, err := s.scorer.Score(obs)
	if err != nil {
		s.metrics.rejection(ctx, models.ErrorTypeServer)
		return scoring.Assessment{}, fmt.Errorf("score observations: %w", err)
	}

	log.Info().
		Float64("risk_score", a.Score).
		Int("features_selected", a.Selected).
		Str("risk_level", a.Band.Level).
		Msgf("[predict] %.3f (%d/%d features selected)", a.Score, a.Selected, scoring.IndicatorCount)

	s.metrics.prediction(ctx, a.Band.Level, a.Score, a.Selected)
	s.recorder.Record(audit.NewEntry(s.modelVersion, a))

	return a, nil
}

func predictionResponse(a scoring.Assessment) models.PredictionResponse {
	return models.PredictionResponse{
		RiskScore:         a.Score,
		FeaturesProcessed: scoring.IndicatorCount,
		FeaturesSelected:  a.Selected,
		Status:            models.StatusSuccess,
	}
}
