package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dermrisk/backend/internal/audit"
	"github.com/dermrisk/backend/internal/config"
	"github.com/dermrisk/backend/internal/database"
	"github.com/dermrisk/backend/internal/logging"
	"github.com/dermrisk/backend/internal/middleware"
	"github.com/dermrisk/backend/internal/predict"
	"github.com/dermrisk/backend/internal/scoring"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogJSON)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := config.LoadModel(cfg.ModelFile)
	if err != nil {
		return err
	}
	engine, err := scoring.NewEngine(model)
	if err != nil {
		return err
	}
	log.Info().Str("model_version", model.Version).Str("model_file", cfg.ModelFile).Msg("Scoring model loaded")

	metrics, err := predict.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}

	// Initialize audit log
	var (
		recorder audit.Recorder = audit.Nop{}
		worker   runner
	)
	if cfg.DB.Enabled {
		db, err := openAuditDB(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		async := audit.NewAsyncRecorder(audit.NewStore(db), cfg.AuditBuffer, metrics.AuditDropped)
		recorder = async
		worker = async
		log.Info().Str("db_host", cfg.DB.Host).Int("buffer", cfg.AuditBuffer).Msg("Audit log enabled")
	} else {
		log.Info().Msg("Audit log disabled (DB_HOST not set)")
	}

	svc := predict.NewService(engine, model.Version, recorder, metrics)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, predict.NewHandler(svc)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	log.Info().Str("port", cfg.Port).Bool("auth", cfg.AuthSecret != "").Msg("Server starting")

	return serve(ctx, srv, ln, worker)
}

type runner interface {
	Run(ctx context.Context) error
}

// serve runs srv on ln until ctx is done. worker, if not nil, is stopped only
// after Shutdown returns, so requests finishing during shutdown still reach it.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, worker runner) error {
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)

	if worker != nil {
		g.Go(func() error { return worker.Run(workerCtx) })
	}

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopWorker()
		return err
	})

	return g.Wait()
}

func openAuditDB(cfg config.DBConfig) (*sql.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newRouter(cfg config.Config, h *predict.Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recover, middleware.RequestLogger)

	api := r.PathPrefix("/api").Subrouter()

	var protect []mux.MiddlewareFunc
	if cfg.AuthSecret != "" {
		protect = append(protect, middleware.RequireToken([]byte(cfg.AuthSecret)))
	}
	h.Register(api, protect...)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return c.Handler(r)
}
