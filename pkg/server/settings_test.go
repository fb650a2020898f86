package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wattwise/wattwise/pkg/storage"
	"github.com/wattwise/wattwise/pkg/storage/storagemock"
	"github.com/wattwise/wattwise/pkg/types"
)

func TestSettings(t *testing.T) {
	t.Run("Get Settings", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		settings := types.DefaultSettings()
		settings.Battery.CapacityKWH = 10
		mockS.On("GetSettings", mock.Anything).Return(settings, types.CurrentSettingsVersion, nil)

		w := doJSON(t, newTestServer(mockS).setupHandler(), "GET", "/api/settings", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		assert.Contains(t, w.Body.String(), `"capacityKWH":10`)
	})

	t.Run("Get Settings - Migrates Old Version", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockS.On("GetSettings", mock.Anything).Return(types.Settings{}, 0, nil)
		mockS.On("SetSettings", mock.Anything, types.DefaultSettings(), types.CurrentSettingsVersion).Return(nil)

		w := doJSON(t, newTestServer(mockS).setupHandler(), "GET", "/api/settings", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, types.DefaultSettings(), decode[types.Settings](t, w))
		mockS.AssertExpectations(t)
	})

	t.Run("Get Settings - Storage Error", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockS.On("GetSettings", mock.Anything).Return(types.Settings{}, 0, errors.New("boom"))

		w := doJSON(t, newTestServer(mockS).setupHandler(), "GET", "/api/settings", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to get settings", errorMessage(t, w))
	})

	t.Run("Update Settings - Partial", func(t *testing.T) {
		db := storage.NewMemory()
		handler := newTestServer(db).setupHandler()

		req := httptest.NewRequest("POST", "/api/settings", strings.NewReader(`{"battery":{"capacityKWH":20,"minLevelFraction":0.1,"maxLevelFraction":0.95},"forecastMode":"heuristic"}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		saved, version, err := db.GetSettings(t.Context())
		require.NoError(t, err)
		assert.Equal(t, types.CurrentSettingsVersion, version)
		assert.Equal(t, 20.0, saved.Battery.CapacityKWH)
		assert.Equal(t, types.ForecastModeHeuristic, saved.ForecastMode)
		// untouched fields keep their defaults
		assert.Equal(t, types.DefaultSettings().AnomalyThresholds, saved.AnomalyThresholds)
		assert.Equal(t, 0.15, saved.StoreSellDollarsPerKWH)
	})

	t.Run("Update Settings - Validation Error", func(t *testing.T) {
		tests := []struct {
			name  string
			body  string
			field string
		}{
			{"min above max", `{"battery":{"capacityKWH":13.5,"minLevelFraction":0.9,"maxLevelFraction":0.2}}`, "battery.minLevelFraction"},
			{"zero capacity", `{"battery":{"capacityKWH":0,"minLevelFraction":0.2,"maxLevelFraction":0.9}}`, "battery.capacityKWH"},
			{"thresholds", `{"anomalyThresholds":{"production":{"low":10,"high":5},"consumption":{"low":0,"high":10}}}`, "anomalyThresholds.production"},
			{"negative rate", `{"buyDollarsPerKWH":-1}`, "buyDollarsPerKWH"},
			{"horizon", `{"forecastHorizonHours":1000}`, "forecastHorizonHours"},
			{"mode", `{"forecastMode":"magic"}`, "forecastMode"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				db := storage.NewMemory()
				handler := newTestServer(db).setupHandler()

				req := httptest.NewRequest("POST", "/api/settings", strings.NewReader(tt.body))
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, req)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, errorMessage(t, w), tt.field)

				// migration saved the defaults, the invalid update was not saved
				saved, _, err := db.GetSettings(t.Context())
				require.NoError(t, err)
				assert.Equal(t, types.DefaultSettings(), saved)
			})
		}
	})

	t.Run("Update Settings - Invalid Body", func(t *testing.T) {
		handler := newTestServer(storage.NewMemory()).setupHandler()
		req := httptest.NewRequest("POST", "/api/settings", strings.NewReader(`{`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid request body", errorMessage(t, w))
	})
}
