package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dermrisk/backend/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "LOG_JSON", "CORS_ALLOWED_ORIGINS", "MODEL_FILE", "AUTH_SECRET", "AUDIT_BUFFER"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("DB_HOST", "")
	os.Unsetenv("DB_HOST")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.ModelFile)
	assert.Empty(t, cfg.AuthSecret)
	assert.Equal(t, 256, cfg.AuditBuffer)
	assert.False(t, cfg.DB.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://clinic.example, https://staff.example ,")
	t.Setenv("AUDIT_BUFFER", "not-a-number")
	t.Setenv("DB_HOST", "db.internal")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, []string{"https://clinic.example", "https://staff.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 256, cfg.AuditBuffer)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "db.internal", cfg.DB.Host)
}

func TestLoadModelDefault(t *testing.T) {
	m, err := LoadModel("")
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultModel(), m)
}

func TestModelRoundTrip(t *testing.T) {
	b, err := EncodeModel(scoring.DefaultModel())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, b, 0o600))

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultModel(), m)
}

func TestParseModelCustom(t *testing.T) {
	doc := `
version: clinic-2
baseline: 0.1
weights:
  multiple_biopsies: 0.2
  failed_steroids: 0.2
  otherrash: 0.1
  scaly_patch_plaque: 0.1
  erythema: 0.1
  xerosis: 0.1
  pruritus: 0.1
  other_failed_therapies: 0.1
interactions:
  - name: burden
    min_selected: 6
    bonus: 0.1
logistic:
  steepness: 5
  midpoint: 0.6
bands:
  - upper: 0.5
    level: Low
  - upper: 1
    level: High
`
	m, err := ParseModel([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "clinic-2", m.Version)
	assert.Equal(t, 0.1, m.Baseline)
	assert.Len(t, m.Interactions, 1)
	assert.Equal(t, 6, m.Interactions[0].MinSelected)
	assert.Equal(t, 5.0, m.Logistic.Steepness)

	_, err = scoring.NewEngine(m)
	assert.NoError(t, err)
}

func TestParseModelRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "weights: [unterminated"},
		{"unknown key", "version: x\nbaseline: 0.05\nweightz: {}\n"},
		{"incomplete", "version: x\nbaseline: 0.05\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read model file")
}
