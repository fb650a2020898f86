package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wattwise/wattwise/pkg/types"
)

// scriptedNoise returns its values in order, then repeats the last one.
type scriptedNoise struct {
	values []float64
	calls  []float64
}

func (s *scriptedNoise) Sample(mean, _ float64) float64 {
	s.calls = append(s.calls, mean)
	if len(s.values) == 0 {
		return mean
	}
	v := s.values[0]
	if len(s.values) > 1 {
		s.values = s.values[1:]
	}
	return v
}

func refReading(ts time.Time) types.Reading {
	return types.Reading{
		Timestamp:      ts,
		ProductionKWH:  5,
		ConsumptionKWH: 3,
		BatteryLevel:   8,
		Weather:        types.Weather{Temperature: 25, CloudCover: 0.2, Condition: "sunny"},
	}
}

func TestHeuristicForecast(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("24 hours ascending and non-negative", func(t *testing.T) {
		h := NewHeuristic(NewNormalNoise(42))
		preds := h.Forecast(ctx, refReading(start), 24)
		require.Len(t, preds, 24)
		for i, p := range preds {
			assert.GreaterOrEqual(t, p.PredictedProductionKWH, 0.0)
			assert.GreaterOrEqual(t, p.PredictedConsumptionKWH, 0.0)
			assert.Equal(t, start.Add(time.Duration(i)*time.Hour), p.Timestamp)
			if i > 0 {
				assert.True(t, p.Timestamp.After(preds[i-1].Timestamp))
			}
		}
	})

	t.Run("day and night factors", func(t *testing.T) {
		h := NewHeuristic(FixedNoise{})
		preds := h.Forecast(ctx, refReading(start), 24)
		require.Len(t, preds, 24)
		for _, p := range preds {
			hour := p.Timestamp.Hour()
			if hour >= 6 && hour <= 18 {
				assert.InDelta(t, 5.0, p.PredictedProductionKWH, 1e-9, "hour %d", hour)
				assert.InDelta(t, 3.0, p.PredictedConsumptionKWH, 1e-9, "hour %d", hour)
				assert.Equal(t, 0.8, p.Confidence, "hour %d", hour)
			} else {
				assert.InDelta(t, 1.0, p.PredictedProductionKWH, 1e-9, "hour %d", hour)
				assert.InDelta(t, 2.1, p.PredictedConsumptionKWH, 1e-9, "hour %d", hour)
				assert.Equal(t, 0.7, p.Confidence, "hour %d", hour)
			}
		}
	})

	t.Run("hour of day is derived in UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC-8", -8*60*60)
		// 20:00 local is 04:00 UTC the next day
		ts := time.Date(2026, 6, 1, 20, 0, 0, 0, loc)
		preds := NewHeuristic(FixedNoise{}).Forecast(ctx, refReading(ts), 3)
		require.Len(t, preds, 3)
		assert.Equal(t, 0.7, preds[0].Confidence)
		assert.Equal(t, 0.7, preds[1].Confidence)
		assert.Equal(t, 0.8, preds[2].Confidence)
	})

	t.Run("negative noise is floored", func(t *testing.T) {
		h := NewHeuristic(&scriptedNoise{values: []float64{-0.5}})
		for _, p := range h.Forecast(ctx, refReading(start), 5) {
			assert.Equal(t, 0.0, p.PredictedProductionKWH)
			assert.Equal(t, 0.0, p.PredictedConsumptionKWH)
		}
	})

	t.Run("draws production then consumption", func(t *testing.T) {
		noise := &scriptedNoise{}
		// 18:00 is still daytime, 19:00 is not
		NewHeuristic(noise).Forecast(ctx, refReading(start.Add(18*time.Hour)), 2)
		assert.Equal(t, []float64{1.0, 1.0, 0.2, 0.7}, noise.calls)
	})

	t.Run("same seed is deterministic", func(t *testing.T) {
		a := NewHeuristic(NewNormalNoise(7)).Forecast(ctx, refReading(start), 24)
		b := NewHeuristic(NewNormalNoise(7)).Forecast(ctx, refReading(start), 24)
		assert.Equal(t, a, b)
	})

	t.Run("non-positive horizon is empty", func(t *testing.T) {
		h := NewHeuristic(FixedNoise{})
		for _, hours := range []int{0, -1} {
			preds := h.Forecast(ctx, refReading(start), hours)
			require.NotNil(t, preds)
			assert.Empty(t, preds)
		}
	})
}

func TestAggregateDeficit(t *testing.T) {
	ts := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, AggregateDeficit(nil))
	})

	t.Run("all surplus is zero", func(t *testing.T) {
		preds := []types.Prediction{
			{Timestamp: ts, PredictedProductionKWH: 5, PredictedConsumptionKWH: 3},
			{Timestamp: ts.Add(time.Hour), PredictedProductionKWH: 2, PredictedConsumptionKWH: 2},
		}
		assert.Equal(t, 0.0, AggregateDeficit(preds))
	})

	t.Run("sums only deficit hours", func(t *testing.T) {
		preds := []types.Prediction{
			{PredictedProductionKWH: 5, PredictedConsumptionKWH: 3},
			{PredictedProductionKWH: 1, PredictedConsumptionKWH: 3},
			{PredictedProductionKWH: 0, PredictedConsumptionKWH: 1.5},
		}
		assert.InDelta(t, 3.5, AggregateDeficit(preds), 1e-9)
	})

	t.Run("NaN hours are ignored", func(t *testing.T) {
		preds := []types.Prediction{
			{PredictedProductionKWH: math.NaN(), PredictedConsumptionKWH: 3},
			{PredictedProductionKWH: 1, PredictedConsumptionKWH: 2},
		}
		assert.InDelta(t, 1.0, AggregateDeficit(preds), 1e-9)
	})

	t.Run("never negative for a heuristic forecast", func(t *testing.T) {
		for seed := uint64(1); seed <= 20; seed++ {
			preds := NewHeuristic(NewNormalNoise(seed)).Forecast(context.Background(), refReading(ts), 24)
			assert.GreaterOrEqual(t, AggregateDeficit(preds), 0.0)
		}
	})
}

func TestServiceStrategy(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewService(NewHeuristic(FixedNoise{}), NewModel())

	t.Run("auto falls back to heuristic", func(t *testing.T) {
		preds, mode := s.Forecast(ctx, types.ForecastModeAuto, refReading(start), 24)
		assert.Equal(t, types.ForecastModeHeuristic, mode)
		assert.Len(t, preds, 24)
	})

	t.Run("model without training is empty", func(t *testing.T) {
		preds, mode := s.Forecast(ctx, types.ForecastModeModel, refReading(start), 24)
		assert.Equal(t, types.ForecastModeModel, mode)
		assert.Empty(t, preds)
	})

	require.NoError(t, s.Model().Train(ctx, history(start.Add(-72*time.Hour), 72)))

	t.Run("auto uses trained model", func(t *testing.T) {
		preds, mode := s.Forecast(ctx, types.ForecastModeAuto, refReading(start), 24)
		assert.Equal(t, types.ForecastModeModel, mode)
		assert.Len(t, preds, 24)
	})

	t.Run("heuristic stays heuristic", func(t *testing.T) {
		_, mode := s.Forecast(ctx, types.ForecastModeHeuristic, refReading(start), 24)
		assert.Equal(t, types.ForecastModeHeuristic, mode)
	})
}
