package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/monitor"
	"github.com/wattwise/wattwise/pkg/types"
)

const statusWindow = 24 * time.Hour

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	w.Header().Set("Cache-Control", "no-store")

	latest, ok, err := s.latestReading(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get latest reading", slog.Any("error", err))
		writeJSONError(w, "failed to get status", http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, types.Status{
			Status:       types.StatusInactive,
			Message:      "No readings recorded yet",
			ModelTrained: s.forecasts.Model().IsTrained(),
		}, http.StatusOK)
		return
	}

	total, err := s.storage.CountReadings(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to count readings", slog.Any("error", err))
		writeJSONError(w, "failed to get status", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	// GetReadings excludes the end so nudge it to include readings at now
	recent, err := s.storage.GetReadings(ctx, now.Add(-statusWindow), now.Add(time.Nanosecond))
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get recent readings", slog.Any("error", err))
		writeJSONError(w, "failed to get status", http.StatusInternalServerError)
		return
	}

	summary := monitor.Summarize(latest)
	writeJSON(w, types.Status{
		Status:        types.StatusActive,
		TotalReadings: total,
		LatestReading: &summary,
		Last24h:       monitor.WindowStats(recent, now, statusWindow),
		ModelTrained:  s.forecasts.Model().IsTrained(),
	}, http.StatusOK)
}
