package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wattwise/wattwise/pkg/storage"
	"github.com/wattwise/wattwise/pkg/storage/storagemock"
	"github.com/wattwise/wattwise/pkg/types"
)

func TestStatus(t *testing.T) {
	db := storage.NewMemory()
	handler := newTestServer(db).setupHandler()

	t.Run("Inactive", func(t *testing.T) {
		w := doJSON(t, handler, "GET", "/api/status", nil)
		require.Equal(t, http.StatusOK, w.Code)
		status := decode[types.Status](t, w)
		assert.Equal(t, types.StatusInactive, status.Status)
		assert.Equal(t, "No readings recorded yet", status.Message)
		assert.Nil(t, status.LatestReading)
		assert.False(t, status.ModelTrained)
	})

	now := time.Now()
	for _, r := range []types.Reading{
		// outside of the last 24 hours
		{Timestamp: now.Add(-48 * time.Hour), ProductionKWH: 50, ConsumptionKWH: 50},
		{Timestamp: now.Add(-2 * time.Hour), ProductionKWH: 2, ConsumptionKWH: 1},
		{Timestamp: now.Add(-time.Hour), ProductionKWH: 6, ConsumptionKWH: 3, BatteryLevel: 7},
	} {
		_, err := db.AppendReading(t.Context(), r)
		require.NoError(t, err)
	}

	t.Run("Active", func(t *testing.T) {
		w := doJSON(t, handler, "GET", "/api/status", nil)
		require.Equal(t, http.StatusOK, w.Code)
		status := decode[types.Status](t, w)
		assert.Equal(t, types.StatusActive, status.Status)
		assert.Equal(t, 3, status.TotalReadings)

		require.NotNil(t, status.LatestReading)
		assert.Equal(t, 6.0, status.LatestReading.ProductionKWH)
		assert.Equal(t, 7.0, status.LatestReading.BatteryLevel)
		assert.Equal(t, 3.0, status.LatestReading.NetKWH)

		require.NotNil(t, status.Last24h)
		assert.Equal(t, 2, status.Last24h.TotalReadings)
		assert.Equal(t, 4.0, status.Last24h.AvgProductionKWH)
		assert.Equal(t, 2.0, status.Last24h.AvgConsumptionKWH)
		assert.Equal(t, 6.0, status.Last24h.PeakProductionKWH)
		assert.Equal(t, 3.0, status.Last24h.PeakConsumptionKWH)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockS.On("GetLatestReadings", mock.Anything, 1).Return([]types.Reading(nil), errors.New("boom"))

		w := doJSON(t, newTestServer(mockS).setupHandler(), "GET", "/api/status", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		mockS.AssertExpectations(t)
	})
}
