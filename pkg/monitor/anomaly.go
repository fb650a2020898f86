package monitor

import "github.com/wattwise/wattwise/pkg/types"

const (
	AnomalyLowProduction   = "Low production alert"
	AnomalyHighProduction  = "High production alert"
	AnomalyLowConsumption  = "Low consumption alert"
	AnomalyHighConsumption = "High consumption alert"
)

// DetectAnomalies returns the labels of every metric in the reading that falls
// outside of its threshold. A metric is either low or high, never both. The
// result is empty, not nil, when nothing is anomalous.
func DetectAnomalies(r types.Reading, thresholds types.AnomalyThresholds) []string {
	anomalies := []string{}
	if label := check(r.ProductionKWH, thresholds.Production, AnomalyLowProduction, AnomalyHighProduction); label != "" {
		anomalies = append(anomalies, label)
	}
	if label := check(r.ConsumptionKWH, thresholds.Consumption, AnomalyLowConsumption, AnomalyHighConsumption); label != "" {
		anomalies = append(anomalies, label)
	}
	return anomalies
}

func check(v float64, t types.MetricThreshold, low, high string) string {
	if v < t.Low {
		return low
	} else if v > t.High {
		return high
	}
	return ""
}
