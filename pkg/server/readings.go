package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/monitor"
	"github.com/wattwise/wattwise/pkg/types"
)

const (
	defaultReadingsLimit = 10
	maxReadingsLimit     = 1000
	maxReadingsRange     = 7 * 24 * time.Hour
)

// AddReadingRes is the response type for a recorded reading.
type AddReadingRes struct {
	Status    string               `json:"status"`
	ReadingID string               `json:"readingID"`
	NetEnergy float64              `json:"netEnergy"`
	Anomalies []string             `json:"anomalies"`
	Summary   types.ReadingSummary `json:"summary"`
	Message   string               `json:"message"`
}

func (s *Server) handleAddReading(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reading types.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode reading", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	if !monitor.ValidateReading(reading) {
		s.metrics.Reading("invalid", nil)
		writeJSONError(w, types.ErrInvalidReading.Error(), http.StatusBadRequest)
		return
	}

	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	anomalies := monitor.DetectAnomalies(reading, settings.AnomalyThresholds)

	stored, err := s.storage.AppendReading(ctx, reading)
	if err != nil {
		s.metrics.Reading("error", nil)
		log.Ctx(ctx).ErrorContext(ctx, "failed to append reading", slog.Any("error", err))
		writeJSONError(w, "failed to record reading", http.StatusInternalServerError)
		return
	}
	s.metrics.Reading("accepted", anomalies)

	if len(anomalies) > 0 {
		log.Ctx(ctx).WarnContext(
			ctx,
			"anomalous reading",
			slog.String("readingID", stored.ID),
			slog.Any("anomalies", anomalies),
		)
	}

	writeJSON(w, AddReadingRes{
		Status:    "success",
		ReadingID: stored.ID,
		NetEnergy: stored.NetKWH(),
		Anomalies: anomalies,
		Summary:   monitor.Summarize(stored),
		Message:   "Reading successfully recorded",
	}, http.StatusOK)
}

func (s *Server) handleGetReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		readings []types.Reading
		err      error
	)
	if q.Get("start") != "" || q.Get("end") != "" {
		start, end, rangeErr := parseTimeRange(r)
		if rangeErr != nil {
			writeJSONError(w, "invalid time range: "+rangeErr.Error(), http.StatusBadRequest)
			return
		}
		readings, err = s.storage.GetReadings(ctx, start, end)
	} else {
		limit := defaultReadingsLimit
		if l := q.Get("limit"); l != "" {
			limit, err = strconv.Atoi(l)
			if err != nil || limit < 1 || limit > maxReadingsLimit {
				writeJSONError(w, fmt.Sprintf("limit must be between 1 and %d", maxReadingsLimit), http.StatusBadRequest)
				return
			}
		}
		readings, err = s.storage.GetLatestReadings(ctx, limit)
	}
	// readings can be appended at any timestamp, including in the past
	w.Header().Set("Cache-Control", "no-store")
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get readings", slog.Any("error", err))
		writeJSONError(w, "failed to get readings", http.StatusInternalServerError)
		return
	}
	if readings == nil {
		readings = []types.Reading{}
	}

	writeJSON(w, readings, http.StatusOK)
}

func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("both start and end are required")
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	if end.Sub(start) > maxReadingsRange {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 7 days")
	}

	return start, end, nil
}
