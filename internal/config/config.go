package config

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"github.com/dermrisk/backend/internal/scoring"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	Port           string
	LogLevel       string
	LogJSON        bool
	AllowedOrigins []string
	ModelFile      string
	AuthSecret     string
	AuditBuffer    int
	DB             DBConfig
}

// DBConfig addresses the optional audit database. Enabled is true only
// when DB_HOST is set.
type DBConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads Config from the environment.
func Load() Config {
	_, dbEnabled := os.LookupEnv("DB_HOST")

	return Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getBool("LOG_JSON", false),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ModelFile:      getEnv("MODEL_FILE", ""),
		AuthSecret:     getEnv("AUTH_SECRET", ""),
		AuditBuffer:    getInt("AUDIT_BUFFER", 256),
		DB: DBConfig{
			Enabled:  dbEnabled,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "dermrisk"),
			Password: getEnv("DB_PASSWORD", "dermrisk"),
			Name:     getEnv("DB_NAME", "dermrisk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}
}

// LoadModel returns the reference model when path is empty, otherwise the
// model described by the YAML file at path. The result is validated.
func LoadModel(path string) (scoring.Model, error) {
	if path == "" {
		return scoring.DefaultModel(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return scoring.Model{}, errors.Wrapf(err, "failed to read model file: %s", path)
	}

	m, err := ParseModel(b)
	if err != nil {
		return scoring.Model{}, errors.Wrapf(err, "model file %s", path)
	}
	return m, nil
}

// ParseModel decodes a YAML model. Unknown keys are rejected so a typo in an
// indicator name cannot silently drop a weight.
func ParseModel(b []byte) (scoring.Model, error) {
	var m scoring.Model
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return scoring.Model{}, errors.Wrap(err, "failed to parse model")
	}
	if err := m.Validate(); err != nil {
		return scoring.Model{}, errors.WithStack(err)
	}
	return m, nil
}

// EncodeModel renders m as YAML.
func EncodeModel(m scoring.Model) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, errors.Wrap(err, "failed to marshal model")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to flush model")
	}
	return buf.Bytes(), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
