package types

import "time"

// Prediction is the forecast for a single hour.
type Prediction struct {
	Timestamp               time.Time `json:"timestamp"`
	PredictedProductionKWH  float64   `json:"predictedProduction"`
	PredictedConsumptionKWH float64   `json:"predictedConsumption"`
	Confidence              float64   `json:"confidence"` // 0-1, not a calibrated probability
}

// ForecastMode selects how predictions are generated.
type ForecastMode string

const (
	// ForecastModeHeuristic scales the reference reading by day/night factors.
	ForecastModeHeuristic ForecastMode = "heuristic"
	// ForecastModeModel uses the trained regression model only.
	ForecastModeModel ForecastMode = "model"
	// ForecastModeAuto uses the trained model when available and falls back to
	// the heuristic otherwise.
	ForecastModeAuto ForecastMode = "auto"
)

// Valid returns true if the mode is one of the known modes.
func (m ForecastMode) Valid() bool {
	switch m {
	case ForecastModeHeuristic, ForecastModeModel, ForecastModeAuto:
		return true
	}
	return false
}

// Forecast is the response type for the forecast endpoint.
type Forecast struct {
	Mode                ForecastMode `json:"mode"`
	Predictions         []Prediction `json:"predictions"`
	PredictedDeficitKWH float64      `json:"predictedDeficit"`
}
