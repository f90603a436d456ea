// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/rs/cors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"meal-estimator/internal/analysis"
	"meal-estimator/internal/apperr"
	"meal-estimator/internal/cache"
	"meal-estimator/internal/config"
	"meal-estimator/internal/lookup"
	"meal-estimator/internal/models"
	"meal-estimator/internal/portion"
	"meal-estimator/internal/recognition"
	"meal-estimator/internal/storage"
)

const Name = "meal-estimator"

// Version is overridden at link time.
var Version = "1.0.0"

const shutdownTimeout = 10 * time.Second

var (
	_ lookup.FoodStore       = (*storage.SQLiteStorage)(nil)
	_ analysis.EstimateStore = (*storage.SQLiteStorage)(nil)
)

type EstimatorServer struct {
	info       protocol.Implementation
	httpServer *http.Server
	storage    *storage.SQLiteStorage
	analysis   *analysis.Service
	logger     *zap.SugaredLogger

	// maxBodyBytes caps every request body.
	maxBodyBytes int64
}

func NewEstimatorServer(cfg config.Config, logger *zap.SugaredLogger) (*EstimatorServer, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	// Initialize database
	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	foods := lookup.NewSource(lookup.USDAConfig{
		APIKey:        cfg.USDA.APIKey,
		BaseURL:       cfg.USDA.BaseURL,
		RatePerSecond: cfg.USDA.RatePerSecond,
	}, cfg.FoodCacheTTL, stor, logger.Named("lookup"))

	estimator := portion.NewEstimator(
		portion.WithPolicy(portion.PolicyByName(cfg.PortionPolicy)),
		portion.WithLogger(logger.Named("portion")),
	)
	logger.Infow("portion policy selected", "policy", estimator.Policy().Name)

	svc := analysis.NewService(
		recognition.NewHashRecognizer(nil),
		foods,
		estimator,
		cache.New[*models.MealEstimate](cfg.MealCacheTTL),
		stor,
		logger.Named("analysis"),
	)

	s := &EstimatorServer{
		info:         protocol.Implementation{Name: Name, Version: Version},
		storage:      stor,
		analysis:     svc,
		logger:       logger,
		maxBodyBytes: maxUploadBytes,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the full HTTP surface with CORS and request logging applied.
func (s *EstimatorServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyzeMeal", s.handleAnalyzeMeal)
	mux.HandleFunc("POST /confirmCorrections", s.handleConfirmCorrections)
	mux.HandleFunc("POST /mcp", s.handleMCP)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return cors.AllowAll().Handler(s.logRequests(mux))
}

func (s *EstimatorServer) Start(ctx context.Context) error {
	s.logger.Infow("starting meal estimator server", "addr", s.httpServer.Addr, "version", s.info.Version)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *EstimatorServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = multierr.Append(err, s.httpServer.Shutdown(ctx))
	}
	if s.storage != nil {
		err = multierr.Append(err, s.storage.Close())
	}
	return err
}

func (s *EstimatorServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"name":    s.info.Name,
		"version": s.info.Version,
	})
}

func (s *EstimatorServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warnw("failed to encode response", "error", err)
	}
}

func (s *EstimatorServer) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Errorw("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *EstimatorServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debugw("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
