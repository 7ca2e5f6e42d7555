package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InsertPrediction(ctx context.Context, e Entry) error {
	obs, err := json.Marshal(e.Observations)
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prediction_log (id, model_version, observations, risk_score, features_selected, risk_level, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.ModelVersion, obs, e.RiskScore, e.FeaturesSelected, e.RiskLevel, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model_version, observations, risk_score, features_selected, risk_level, created_at
		 FROM prediction_log
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			obs []byte
		)
		if err := rows.Scan(&e.ID, &e.ModelVersion, &obs, &e.RiskScore, &e.FeaturesSelected, &e.RiskLevel, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := json.Unmarshal(obs, &e.Observations); err != nil {
			return nil, fmt.Errorf("decode observations: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return entries, nil
}
