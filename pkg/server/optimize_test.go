package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wattwise/wattwise/pkg/storage"
	"github.com/wattwise/wattwise/pkg/types"
)

func TestOptimize(t *testing.T) {
	db := storage.NewMemory()
	handler := newTestServer(db).setupHandler()
	noon := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Surplus", func(t *testing.T) {
		w := doJSON(t, handler, "POST", "/api/optimize", types.Reading{
			Timestamp:      noon,
			ProductionKWH:  5,
			ConsumptionKWH: 3,
			BatteryLevel:   10,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		plan := decode[types.ActionPlan](t, w)
		require.Len(t, plan.Recommendations, 1)
		assert.Equal(t, types.ActionTypeStore, plan.Recommendations[0].ActionType)
		assert.InDelta(t, 2.0, plan.Recommendations[0].AmountKWH, 1e-9)
		assert.Equal(t, 0.3, plan.TotalSavingsPotential)
	})

	t.Run("Deficit", func(t *testing.T) {
		w := doJSON(t, handler, "POST", "/api/optimize", types.Reading{
			Timestamp:      noon,
			ProductionKWH:  2,
			ConsumptionKWH: 5,
			BatteryLevel:   5,
		})
		require.Equal(t, http.StatusOK, w.Code)

		plan := decode[types.ActionPlan](t, w)
		require.Len(t, plan.Recommendations, 2)
		assert.Equal(t, types.ActionTypeUseBattery, plan.Recommendations[0].ActionType)
		assert.Equal(t, types.ActionTypeBuy, plan.Recommendations[1].ActionType)
		// with fixed noise the daytime hours repeat the reading's 3 kWh deficit
		// and nighttime hours have 5*0.7 - 2*0.2 = 3.1
		assert.InDelta(t, 13*3.0+11*3.1, plan.PredictedDeficitKWH, 1e-9)
	})

	t.Run("Balanced", func(t *testing.T) {
		w := doJSON(t, handler, "POST", "/api/optimize", types.Reading{
			Timestamp:      noon,
			ProductionKWH:  3,
			ConsumptionKWH: 3,
			BatteryLevel:   5,
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"recommendations":[]`)
		assert.Contains(t, w.Body.String(), `"totalSavingsPotential":0`)
	})

	t.Run("Battery Level Over Capacity", func(t *testing.T) {
		w := doJSON(t, handler, "POST", "/api/optimize", types.Reading{
			ProductionKWH:  5,
			ConsumptionKWH: 3,
			BatteryLevel:   20,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, errorMessage(t, w), "capacity")
	})

	t.Run("Invalid Reading", func(t *testing.T) {
		w := doJSON(t, handler, "POST", "/api/optimize", types.Reading{
			ProductionKWH:  -5,
			ConsumptionKWH: 3,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid reading", errorMessage(t, w))
	})

	t.Run("Custom Rates And Battery", func(t *testing.T) {
		settings := types.DefaultSettings()
		settings.Battery.CapacityKWH = 27
		settings.BuyDollarsPerKWH = 0.5
		require.NoError(t, db.SetSettings(t.Context(), settings, types.CurrentSettingsVersion))

		w := doJSON(t, handler, "POST", "/api/optimize", types.Reading{
			Timestamp:      noon,
			ProductionKWH:  2,
			ConsumptionKWH: 5,
			BatteryLevel:   20,
		})
		require.Equal(t, http.StatusOK, w.Code)
		plan := decode[types.ActionPlan](t, w)
		require.Len(t, plan.Recommendations, 1)
		assert.Equal(t, types.ActionTypeUseBattery, plan.Recommendations[0].ActionType)
		assert.Equal(t, -1.5, plan.TotalSavingsPotential)
	})

	t.Run("Invalid Stored Settings", func(t *testing.T) {
		settings := types.DefaultSettings()
		settings.Battery.MinLevelFraction = 0.95
		require.NoError(t, db.SetSettings(t.Context(), settings, types.CurrentSettingsVersion))

		w := doJSON(t, handler, "POST", "/api/optimize", types.Reading{
			Timestamp:      noon,
			ProductionKWH:  5,
			ConsumptionKWH: 3,
			BatteryLevel:   10,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, errorMessage(t, w), "invalid configuration")
	})
}
