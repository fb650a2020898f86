package monitor

import (
	"math"

	"github.com/wattwise/wattwise/pkg/types"
)

const (
	// MaxEnergyKWH is the largest production or consumption accepted for a
	// single reading.
	MaxEnergyKWH = 100.0
	// MaxBatteryLevel is the largest battery level accepted for a single
	// reading.
	MaxBatteryLevel = 100.0
)

// ValidateReading returns true if the production, consumption and battery
// level of the reading are all within their domain bounds. A reading that
// fails validation must not be checked for anomalies or stored.
func ValidateReading(r types.Reading) bool {
	return inRange(r.ProductionKWH, 0, MaxEnergyKWH) &&
		inRange(r.ConsumptionKWH, 0, MaxEnergyKWH) &&
		inRange(r.BatteryLevel, 0, MaxBatteryLevel)
}

// inRange is a closed range check that rejects NaN.
func inRange(v, low, high float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return v >= low && v <= high
}
