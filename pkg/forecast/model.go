package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wattwise/wattwise/pkg/types"
	"gonum.org/v1/gonum/mat"
)

const (
	// MinTrainingReadings is the fewest readings a model can be trained on.
	MinTrainingReadings = 24

	// modelConfidence is a fixed placeholder until a variance based estimate
	// exists.
	modelConfidence = 0.8
)

// Model is a pair of regressors predicting production and consumption from
// time and weather features. It is only changed by Train and is safe for
// concurrent use.
type Model struct {
	mu          sync.RWMutex
	scaler      *Scaler
	production  *Ridge
	consumption *Ridge
	isTrained   bool
	trainedAt   time.Time
	samples     int
}

// NewModel creates an untrained Model.
func NewModel() *Model {
	return &Model{}
}

// IsTrained returns true once Train has succeeded.
func (m *Model) IsTrained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isTrained
}

// TrainedAt returns when the model was last trained and on how many readings.
func (m *Model) TrainedAt() (time.Time, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trainedAt, m.samples
}

// Train fits the model to the readings. It returns ErrInsufficientData if
// there are fewer than MinTrainingReadings readings, in which case the model
// is left unchanged. The new fit is built without holding the lock so
// forecasts keep using the previous fit until it is swapped in.
func (m *Model) Train(ctx context.Context, readings []types.Reading) error {
	if len(readings) < MinTrainingReadings {
		return fmt.Errorf("%w: have %d readings, need %d", ErrInsufficientData, len(readings), MinTrainingReadings)
	}

	x := mat.NewDense(len(readings), numFeatures, nil)
	yProduction := make([]float64, len(readings))
	yConsumption := make([]float64, len(readings))
	for i, r := range readings {
		x.SetRow(i, features(r.Timestamp, r.Weather))
		yProduction[i] = r.ProductionKWH
		yConsumption[i] = r.ConsumptionKWH
	}

	scaler := FitScaler(x)
	scaled := scaler.Transform(x)

	production := NewRidge(defaultL2)
	if err := production.Fit(scaled, yProduction); err != nil {
		return fmt.Errorf("failed to fit production model: %w", err)
	}
	consumption := NewRidge(defaultL2)
	if err := consumption.Fit(scaled, yConsumption); err != nil {
		return fmt.Errorf("failed to fit consumption model: %w", err)
	}

	m.mu.Lock()
	m.scaler = scaler
	m.production = production
	m.consumption = consumption
	m.isTrained = true
	m.trainedAt = time.Now()
	m.samples = len(readings)
	m.mu.Unlock()

	slog.DebugContext(ctx, "forecast model trained", slog.Int("samples", len(readings)))
	return nil
}

// Forecast implements Forecaster. Weather is held constant at the reference
// reading's values. It returns an empty forecast if the model is not trained.
func (m *Model) Forecast(ctx context.Context, ref types.Reading, horizonHours int) []types.Prediction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isTrained || horizonHours <= 0 {
		if !m.isTrained {
			slog.DebugContext(ctx, "forecast model not trained")
		}
		return []types.Prediction{}
	}

	predictions := make([]types.Prediction, 0, horizonHours)
	for i := 0; i < horizonHours; i++ {
		ts := ref.Timestamp.Add(time.Duration(i) * time.Hour).UTC()
		v := m.scaler.TransformVec(features(ts, ref.Weather))
		predictions = append(predictions, types.Prediction{
			Timestamp:               ts,
			PredictedProductionKWH:  floor(m.production.Predict(v)),
			PredictedConsumptionKWH: floor(m.consumption.Predict(v)),
			Confidence:              modelConfidence,
		})
	}
	return predictions
}
