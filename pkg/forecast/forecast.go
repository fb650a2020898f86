// Package forecast turns a reference reading into an hourly forecast of
// production and consumption.
package forecast

import (
	"context"
	"errors"
	"math"

	"github.com/wattwise/wattwise/pkg/types"
)

// ErrInsufficientData is returned when there are not enough readings to train
// a model.
var ErrInsufficientData = errors.New("insufficient data")

// Forecaster predicts production and consumption for each hour of the horizon
// starting at the reference reading. An empty result means no forecast is
// available and is not an error.
type Forecaster interface {
	Forecast(ctx context.Context, ref types.Reading, horizonHours int) []types.Prediction
}

// Service picks a Forecaster based on the configured mode.
type Service struct {
	heuristic *Heuristic
	model     *Model
}

// NewService creates a Service from a heuristic and a (possibly untrained)
// model.
func NewService(heuristic *Heuristic, model *Model) *Service {
	return &Service{
		heuristic: heuristic,
		model:     model,
	}
}

// Model returns the model used by the service.
func (s *Service) Model() *Model {
	return s.model
}

// Strategy returns the Forecaster to use for the mode along with the mode
// that was actually chosen. ForecastModeAuto resolves to the model when it is
// trained and to the heuristic otherwise.
func (s *Service) Strategy(mode types.ForecastMode) (Forecaster, types.ForecastMode) {
	switch mode {
	case types.ForecastModeModel:
		return s.model, types.ForecastModeModel
	case types.ForecastModeHeuristic:
		return s.heuristic, types.ForecastModeHeuristic
	default:
		if s.model.IsTrained() {
			return s.model, types.ForecastModeModel
		}
		return s.heuristic, types.ForecastModeHeuristic
	}
}

// Forecast runs the strategy for the mode and returns the predictions along
// with the mode used.
func (s *Service) Forecast(ctx context.Context, mode types.ForecastMode, ref types.Reading, horizonHours int) ([]types.Prediction, types.ForecastMode) {
	f, used := s.Strategy(mode)
	return f.Forecast(ctx, ref, horizonHours), used
}

// floor clamps negative and NaN energy to 0.
func floor(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
