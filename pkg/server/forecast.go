package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/wattwise/wattwise/pkg/forecast"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/types"
)

// handleForecast forecasts from the latest reading starting at the current
// hour.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	hours := settings.ForecastHorizonHours
	if h := r.URL.Query().Get("hours"); h != "" {
		hours, err = strconv.Atoi(h)
		if err != nil || hours < 1 || hours > types.MaxForecastHorizonHours {
			writeJSONError(w, fmt.Sprintf("hours must be between 1 and %d", types.MaxForecastHorizonHours), http.StatusBadRequest)
			return
		}
	}

	mode := settings.ForecastMode
	if m := r.URL.Query().Get("mode"); m != "" {
		mode = types.ForecastMode(m)
		if !mode.Valid() {
			writeJSONError(w, fmt.Sprintf("unknown forecast mode %q", m), http.StatusBadRequest)
			return
		}
	}

	ref, ok, err := s.latestReading(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest reading", slog.Any("error", err))
		writeJSONError(w, "failed to get latest reading", http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSONError(w, "no historical data available", http.StatusBadRequest)
		return
	}
	ref.Timestamp = time.Now().UTC().Truncate(time.Hour)

	predictions, used := s.forecasts.Forecast(ctx, mode, ref, hours)
	if len(predictions) == 0 {
		writeJSONError(w, "no forecast available", http.StatusUnprocessableEntity)
		return
	}
	s.metrics.Forecast(used)

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, types.Forecast{
		Mode:                used,
		Predictions:         predictions,
		PredictedDeficitKWH: forecast.AggregateDeficit(predictions),
	}, http.StatusOK)
}
