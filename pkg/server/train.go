package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/wattwise/wattwise/pkg/forecast"
	"github.com/wattwise/wattwise/pkg/log"
)

// TrainRes is the response type for a model training request.
type TrainRes struct {
	Trained   bool      `json:"trained"`
	Samples   int       `json:"samples"`
	TrainedAt time.Time `json:"trainedAt"`
}

// reserveTrain returns false if a training request was accepted less than
// trainMinInterval ago.
func (s *Server) reserveTrain(now time.Time) bool {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	if !s.lastTrain.IsZero() && now.Sub(s.lastTrain) < s.trainMinInterval {
		return false
	}
	s.lastTrain = now
	return true
}

// releaseTrain gives back the reservation made at now so that a request that
// failed before fitting does not hold off the next one.
func (s *Server) releaseTrain(now time.Time) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	if s.lastTrain.Equal(now) {
		s.lastTrain = time.Time{}
	}
}

// handleTrainModel fits the forecast model to the recent readings on the
// background trainer and waits for the result.
func (s *Server) handleTrainModel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	now := time.Now()
	if !s.reserveTrain(now) {
		writeJSONError(w, "model was trained recently, try again later", http.StatusTooManyRequests)
		return
	}

	readings, err := s.storage.GetReadings(ctx, now.Add(-s.trainWindow), now.Add(time.Nanosecond))
	if err != nil {
		s.releaseTrain(now)
		log.Ctx(ctx).ErrorContext(ctx, "failed to get readings", slog.Any("error", err))
		writeJSONError(w, "failed to get readings", http.StatusInternalServerError)
		return
	}

	res, err := s.trainer.Fit(ctx, readings).Wait(ctx)
	if err != nil {
		if errors.Is(err, forecast.ErrInsufficientData) {
			s.releaseTrain(now)
			writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if ctx.Err() != nil {
			// the client went away, the fit keeps going in the background
			return
		}
		s.releaseTrain(now)
		log.Ctx(ctx).ErrorContext(ctx, "failed to train model", slog.Any("error", err))
		writeJSONError(w, "failed to train model", http.StatusInternalServerError)
		return
	}

	trainedAt, _ := s.forecasts.Model().TrainedAt()
	writeJSON(w, TrainRes{
		Trained:   res.Trained,
		Samples:   res.Samples,
		TrainedAt: trainedAt,
	}, http.StatusOK)
}
