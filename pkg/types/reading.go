package types

import (
	"encoding/json"
	"time"
)

// DefaultTemperature is assumed for a decoded reading that has no temperature.
const DefaultTemperature = 20.0

// Weather is the weather observed alongside a reading.
type Weather struct {
	Temperature float64 `json:"temperature"`
	CloudCover  float64 `json:"cloudCover"` // 0-1
	Condition   string  `json:"condition"`
}

// Reading is a single telemetry sample from a home. Once recorded it is never
// modified.
type Reading struct {
	ID             string    `json:"id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	ProductionKWH  float64   `json:"production"`
	ConsumptionKWH float64   `json:"consumption"`
	// BatteryLevel is in kWh on the optimize path and must be consistent with
	// BatteryConfig.CapacityKWH.
	BatteryLevel float64 `json:"batteryLevel"`
	Weather      Weather `json:"weather"`
}

// UnmarshalJSON decodes a reading, defaulting the temperature when the
// weather or its temperature is missing. Cloud cover defaults to 0.
func (r *Reading) UnmarshalJSON(b []byte) error {
	type reading Reading
	v := reading{Weather: Weather{Temperature: DefaultTemperature}}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Reading(v)
	return nil
}

// NetKWH returns production minus consumption. Positive is a surplus.
func (r Reading) NetKWH() float64 {
	return r.ProductionKWH - r.ConsumptionKWH
}

// ReadingSummary is the status of the home at the time of a reading.
type ReadingSummary struct {
	Timestamp      time.Time `json:"timestamp"`
	ProductionKWH  float64   `json:"currentProduction"`
	ConsumptionKWH float64   `json:"currentConsumption"`
	BatteryLevel   float64   `json:"batteryLevel"`
	NetKWH         float64   `json:"netEnergy"`
}

// WindowStats aggregates readings over a window of time.
type WindowStats struct {
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	TotalReadings      int       `json:"totalReadings"`
	AvgProductionKWH   float64   `json:"avgProduction"`
	AvgConsumptionKWH  float64   `json:"avgConsumption"`
	PeakProductionKWH  float64   `json:"peakProduction"`
	PeakConsumptionKWH float64   `json:"peakConsumption"`
}

// Status is the response type for the status endpoint.
type Status struct {
	Status        string          `json:"status"`
	Message       string          `json:"message,omitempty"`
	TotalReadings int             `json:"totalReadings"`
	LatestReading *ReadingSummary `json:"latestReading,omitempty"`
	Last24h       *WindowStats    `json:"last24hStats,omitempty"`
	ModelTrained  bool            `json:"modelTrained"`
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)
