package monitor

import (
	"time"

	"github.com/wattwise/wattwise/pkg/types"
)

// Summarize returns the status of the home at the time of the reading.
func Summarize(r types.Reading) types.ReadingSummary {
	return types.ReadingSummary{
		Timestamp:      r.Timestamp,
		ProductionKWH:  r.ProductionKWH,
		ConsumptionKWH: r.ConsumptionKWH,
		BatteryLevel:   r.BatteryLevel,
		NetKWH:         r.NetKWH(),
	}
}

// WindowStats aggregates the readings with a timestamp in (end-window, end].
// It returns nil if no readings fall in the window.
func WindowStats(readings []types.Reading, end time.Time, window time.Duration) *types.WindowStats {
	start := end.Add(-window)
	stats := types.WindowStats{
		Start: start,
		End:   end,
	}
	var totalProduction, totalConsumption float64
	for _, r := range readings {
		if !r.Timestamp.After(start) || r.Timestamp.After(end) {
			continue
		}
		stats.TotalReadings++
		totalProduction += r.ProductionKWH
		totalConsumption += r.ConsumptionKWH
		stats.PeakProductionKWH = max(stats.PeakProductionKWH, r.ProductionKWH)
		stats.PeakConsumptionKWH = max(stats.PeakConsumptionKWH, r.ConsumptionKWH)
	}
	if stats.TotalReadings == 0 {
		return nil
	}
	stats.AvgProductionKWH = totalProduction / float64(stats.TotalReadings)
	stats.AvgConsumptionKWH = totalConsumption / float64(stats.TotalReadings)
	return &stats
}
