package types

import "math"

const (
	DefaultBatteryCapacityKWH = 13.5
	DefaultMinLevelFraction   = 0.2
	DefaultMaxLevelFraction   = 0.9
)

// BatteryConfig describes the usable range of a home battery. The min and max
// fractions bound the usable range to protect battery longevity.
type BatteryConfig struct {
	CapacityKWH      float64 `json:"capacityKWH"`
	MinLevelFraction float64 `json:"minLevelFraction"`
	MaxLevelFraction float64 `json:"maxLevelFraction"`
}

// DefaultBatteryConfig returns the configuration of a 13.5 kWh battery.
func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{
		CapacityKWH:      DefaultBatteryCapacityKWH,
		MinLevelFraction: DefaultMinLevelFraction,
		MaxLevelFraction: DefaultMaxLevelFraction,
	}
}

// Validate returns a ConfigurationError if the config cannot be used.
func (b BatteryConfig) Validate() error {
	switch {
	case math.IsNaN(b.CapacityKWH) || b.CapacityKWH <= 0:
		return &ConfigurationError{Field: "battery.capacityKWH", Reason: "must be positive"}
	case math.IsNaN(b.MinLevelFraction) || b.MinLevelFraction < 0 || b.MinLevelFraction > 1:
		return &ConfigurationError{Field: "battery.minLevelFraction", Reason: "must be between 0 and 1"}
	case math.IsNaN(b.MaxLevelFraction) || b.MaxLevelFraction < 0 || b.MaxLevelFraction > 1:
		return &ConfigurationError{Field: "battery.maxLevelFraction", Reason: "must be between 0 and 1"}
	case b.MinLevelFraction >= b.MaxLevelFraction:
		return &ConfigurationError{Field: "battery.minLevelFraction", Reason: "must be less than maxLevelFraction"}
	}
	return nil
}

// FloorKWH is the lowest level the battery should be discharged to.
func (b BatteryConfig) FloorKWH() float64 {
	return b.CapacityKWH * b.MinLevelFraction
}

// CeilingKWH is the highest level the battery should be charged to.
func (b BatteryConfig) CeilingKWH() float64 {
	return b.CapacityKWH * b.MaxLevelFraction
}

// HeadroomKWH is how much more energy can be stored before hitting the
// ceiling. It is negative when the battery is above the ceiling.
func (b BatteryConfig) HeadroomKWH(level float64) float64 {
	return b.CeilingKWH() - level
}

// AvailableKWH is how much energy can be withdrawn before hitting the floor.
// It is negative when the battery is below the floor.
func (b BatteryConfig) AvailableKWH(level float64) float64 {
	return level - b.FloorKWH()
}
