package forecast

import (
	"context"
	"log/slog"
	"time"

	"github.com/wattwise/wattwise/pkg/types"
)

const (
	daytimeStartHour = 6
	daytimeEndHour   = 18

	noiseSpread = 0.1

	daytimeProductionFactor    = 1.0
	daytimeConsumptionFactor   = 1.0
	nighttimeProductionFactor  = 0.2
	nighttimeConsumptionFactor = 0.7

	daytimeConfidence   = 0.8
	nighttimeConfidence = 0.7
)

// Heuristic forecasts by scaling the reference reading with a day or night
// factor and noise. It is used when no trained model is available.
type Heuristic struct {
	noise Noise
}

// NewHeuristic creates a Heuristic drawing from noise.
func NewHeuristic(noise Noise) *Heuristic {
	return &Heuristic{
		noise: noise,
	}
}

// Forecast implements Forecaster.
func (h *Heuristic) Forecast(ctx context.Context, ref types.Reading, horizonHours int) []types.Prediction {
	if horizonHours <= 0 {
		return []types.Prediction{}
	}

	predictions := make([]types.Prediction, 0, horizonHours)
	for i := 0; i < horizonHours; i++ {
		ts := ref.Timestamp.Add(time.Duration(i) * time.Hour).UTC()
		hour := ts.Hour()

		productionFactor, consumptionFactor, confidence := nighttimeProductionFactor, nighttimeConsumptionFactor, nighttimeConfidence
		if isDaytime(hour) {
			productionFactor, consumptionFactor, confidence = daytimeProductionFactor, daytimeConsumptionFactor, daytimeConfidence
		}

		predictions = append(predictions, types.Prediction{
			Timestamp:               ts,
			PredictedProductionKWH:  floor(ref.ProductionKWH * h.noise.Sample(productionFactor, noiseSpread)),
			PredictedConsumptionKWH: floor(ref.ConsumptionKWH * h.noise.Sample(consumptionFactor, noiseSpread)),
			Confidence:              confidence,
		})
	}

	slog.DebugContext(
		ctx,
		"heuristic forecast generated",
		slog.Time("start", ref.Timestamp),
		slog.Int("hours", horizonHours),
		slog.Float64("refProduction", ref.ProductionKWH),
		slog.Float64("refConsumption", ref.ConsumptionKWH),
	)
	return predictions
}

func isDaytime(hour int) bool {
	return hour >= daytimeStartHour && hour <= daytimeEndHour
}
