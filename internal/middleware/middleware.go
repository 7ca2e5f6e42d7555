package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dermrisk/backend/internal/auth"
	"github.com/dermrisk/backend/internal/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// Subject returns the authenticated token subject, if any.
func Subject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok
}

// RequireToken rejects requests without a valid bearer token signed with
// secret. CORS preflight requests pass through untouched.
func RequireToken(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authorization required", Type: models.ErrorTypeAuth})
				return
			}

			claims, err := auth.ParseToken(secret, tokenString)
			if err != nil {
				log.Debug().Err(err).Msg("[auth] rejected token")
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired token", Type: models.ErrorTypeAuth})
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover turns a panic into a generic internal error. The panic value and
// stack go to the operator log only. A response already started is left as
// is.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				log.Error().
					Interface("panic", p).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Bool("response_started", rec.wroteHeader).
					Msg("[http] recovered panic")
				if !rec.wroteHeader {
					writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error", Type: models.ErrorTypeServer})
				}
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

// RequestLogger logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("[http] request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
