package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"github.com/wattwise/wattwise/pkg/controller"
	"github.com/wattwise/wattwise/pkg/forecast"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/metrics"
	"github.com/wattwise/wattwise/pkg/storage"
	"github.com/wattwise/wattwise/pkg/types"
)

// Server handles the HTTP API for the WattWise system.
// It orchestrates interactions between storage, the forecasters and the
// controller.
type Server struct {
	storage    storage.Database
	controller *controller.Controller
	forecasts  *forecast.Service
	trainer    *forecast.Trainer
	metrics    *metrics.Metrics

	listenAddr       string
	httpServer       *http.Server
	allowedOrigins   []string
	serverName       string
	trainWindow      time.Duration
	trainMinInterval time.Duration

	trainMu   sync.Mutex
	lastTrain time.Time
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(s storage.Database, m *metrics.Metrics) *Server {
	srv := &Server{
		storage:    s,
		controller: controller.NewController(),
		metrics:    m,
		serverName: "wattwise",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	allowedOrigins := lflag.String("cors-allowed-origins", "http://localhost:8080", "comma-delimited list of origins allowed to call the API")
	forecastSeed := lflag.Int("forecast-seed", 0, "Seed for the heuristic forecast noise. 0 seeds from the current time.")
	trainWindow := lflag.Duration("train-window", 30*24*time.Hour, "How far back readings are used to train the forecast model")
	trainMinInterval := lflag.Duration("train-min-interval", time.Minute, "Minimum time between model training requests")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if *allowedOrigins != "" {
			srv.allowedOrigins = strings.Split(*allowedOrigins, ",")
			for i, origin := range srv.allowedOrigins {
				srv.allowedOrigins[i] = strings.TrimSpace(origin)
			}
		}
		if *forecastSeed < 0 {
			log.Ctx(context.Background()).Error("forecast-seed cannot be negative")
			os.Exit(1)
		}
		srv.trainWindow = *trainWindow
		srv.trainMinInterval = *trainMinInterval
		srv.setupForecasts(forecast.NewNormalNoise(uint64(*forecastSeed)))
	})

	return srv
}

// setupForecasts creates the forecasters and the trainer for the model.
func (s *Server) setupForecasts(noise forecast.Noise) {
	model := forecast.NewModel()
	s.forecasts = forecast.NewService(forecast.NewHeuristic(noise), model)
	s.trainer = forecast.NewTrainer(model, func(res forecast.TrainResult) {
		s.metrics.Train(res.Duration, res.Samples, res.Err)
	})
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	s.handleAPI(apiMux, "POST /api/readings", s.handleAddReading)
	s.handleAPI(apiMux, "GET /api/readings", s.handleGetReadings)
	s.handleAPI(apiMux, "GET /api/forecast", s.handleForecast)
	s.handleAPI(apiMux, "POST /api/optimize", s.handleOptimize)
	s.handleAPI(apiMux, "GET /api/status", s.handleStatus)
	s.handleAPI(apiMux, "GET /api/settings", s.handleGetSettings)
	s.handleAPI(apiMux, "POST /api/settings", s.handleUpdateSettings)
	s.handleAPI(apiMux, "POST /api/model/train", s.handleTrainModel)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.corsMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(requestIDMiddleware(mux))))
}

// requestIDMiddleware tags the request's logger with the request ID, reusing
// the caller's X-Request-Id when it is a UUID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := log.WithAttrs(
			r.Context(),
			slog.String("requestID", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleAPI(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.metrics.WrapHandler(pattern, h))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

// latestReading returns the newest reading or false if there are none.
func (s *Server) latestReading(ctx context.Context) (types.Reading, bool, error) {
	latest, err := s.storage.GetLatestReadings(ctx, 1)
	if err != nil {
		return types.Reading{}, false, err
	}
	if len(latest) == 0 {
		return types.Reading{}, false, nil
	}
	return latest[0], true, nil
}
