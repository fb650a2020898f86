package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/wattwise/wattwise/pkg/forecast"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/monitor"
	"github.com/wattwise/wattwise/pkg/types"
)

// handleOptimize returns the action plan for the posted reading. The
// reading's battery level is in kWh and must not exceed the configured
// capacity.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reading types.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode reading", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !monitor.ValidateReading(reading) {
		writeJSONError(w, types.ErrInvalidReading.Error(), http.StatusBadRequest)
		return
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	if reading.BatteryLevel > settings.Battery.CapacityKWH {
		writeJSONError(w, "batteryLevel cannot exceed the battery capacity", http.StatusBadRequest)
		return
	}

	predictions, mode := s.forecasts.Forecast(ctx, settings.ForecastMode, reading, settings.ForecastHorizonHours)
	deficit := forecast.AggregateDeficit(predictions)

	plan, err := s.controller.Optimize(ctx, reading, deficit, settings.Battery, settings.Rates())
	if err != nil {
		if types.IsConfigurationError(err) {
			log.Ctx(ctx).ErrorContext(ctx, "stored settings are invalid", slog.Any("error", err))
			writeJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to optimize", slog.Any("error", err))
		writeJSONError(w, "failed to optimize", http.StatusInternalServerError)
		return
	}
	s.metrics.Plan(plan)

	log.Ctx(ctx).DebugContext(
		ctx,
		"optimized",
		slog.String("forecastMode", string(mode)),
		slog.Int("predictions", len(predictions)),
		slog.Int("recommendations", len(plan.Recommendations)),
	)

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, plan, http.StatusOK)
}
