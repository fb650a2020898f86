package types

import (
	"fmt"
	"math"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 3

// MaxForecastHorizonHours bounds the forecast horizon a caller may request.
const MaxForecastHorizonHours = 168

// MetricThreshold bounds the expected value of a single metric.
type MetricThreshold struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// AnomalyThresholds are the bounds outside of which a reading is flagged.
type AnomalyThresholds struct {
	Production  MetricThreshold `json:"production"`
	Consumption MetricThreshold `json:"consumption"`
}

// Settings represents the configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// Anomaly Settings
	AnomalyThresholds AnomalyThresholds `json:"anomalyThresholds"`

	// Battery Settings
	Battery BatteryConfig `json:"battery"`

	// Rate Settings
	// Value of each kWh stored or sold (in $/kWh)
	StoreSellDollarsPerKWH float64 `json:"storeSellDollarsPerKWH"`
	// Cost of each kWh bought or drawn from the battery (in $/kWh)
	BuyDollarsPerKWH float64 `json:"buyDollarsPerKWH"`

	// Forecast Settings
	ForecastHorizonHours int          `json:"forecastHorizonHours"`
	ForecastMode         ForecastMode `json:"forecastMode"`
}

// DefaultSettings returns fully migrated settings.
func DefaultSettings() Settings {
	s, _, err := MigrateSettings(Settings{}, 0)
	if err != nil {
		// migrations from 0 cannot fail
		panic(err)
	}
	return s
}

// Rates returns the rates portion of the settings.
func (s Settings) Rates() Rates {
	return Rates{
		StoreSellDollarsPerKWH: s.StoreSellDollarsPerKWH,
		BuyDollarsPerKWH:       s.BuyDollarsPerKWH,
	}
}

// Validate returns a ConfigurationError if the settings cannot be used.
func (s Settings) Validate() error {
	if err := validateThreshold("anomalyThresholds.production", s.AnomalyThresholds.Production); err != nil {
		return err
	}
	if err := validateThreshold("anomalyThresholds.consumption", s.AnomalyThresholds.Consumption); err != nil {
		return err
	}
	if err := s.Battery.Validate(); err != nil {
		return err
	}
	if err := s.Rates().Validate(); err != nil {
		return err
	}
	if s.ForecastHorizonHours <= 0 || s.ForecastHorizonHours > MaxForecastHorizonHours {
		return &ConfigurationError{Field: "forecastHorizonHours", Reason: fmt.Sprintf("must be between 1 and %d", MaxForecastHorizonHours)}
	}
	if !s.ForecastMode.Valid() {
		return &ConfigurationError{Field: "forecastMode", Reason: fmt.Sprintf("unknown mode %q", s.ForecastMode)}
	}
	return nil
}

// Validate returns a ConfigurationError if either rate is negative.
func (r Rates) Validate() error {
	if math.IsNaN(r.StoreSellDollarsPerKWH) || r.StoreSellDollarsPerKWH < 0 {
		return &ConfigurationError{Field: "storeSellDollarsPerKWH", Reason: "must not be negative"}
	}
	if math.IsNaN(r.BuyDollarsPerKWH) || r.BuyDollarsPerKWH < 0 {
		return &ConfigurationError{Field: "buyDollarsPerKWH", Reason: "must not be negative"}
	}
	return nil
}

func validateThreshold(field string, t MetricThreshold) error {
	if math.IsNaN(t.Low) || math.IsNaN(t.High) {
		return &ConfigurationError{Field: field, Reason: "must be a number"}
	}
	if t.Low > t.High {
		return &ConfigurationError{Field: field, Reason: "low must not exceed high"}
	}
	return nil
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial anomaly thresholds
			// a low of 0 is the default so only the highs are checked
			if s.AnomalyThresholds.Production.High == 0 {
				s.AnomalyThresholds.Production = MetricThreshold{Low: 0, High: 15}
				migrated = true
			}
			if s.AnomalyThresholds.Consumption.High == 0 {
				s.AnomalyThresholds.Consumption = MetricThreshold{Low: 0, High: 10}
				migrated = true
			}
		case 2:
			// version 2: add battery config
			if s.Battery.CapacityKWH == 0 {
				s.Battery.CapacityKWH = DefaultBatteryCapacityKWH
				migrated = true
			}
			if s.Battery.MinLevelFraction == 0 && s.Battery.MaxLevelFraction == 0 {
				s.Battery.MinLevelFraction = DefaultMinLevelFraction
				s.Battery.MaxLevelFraction = DefaultMaxLevelFraction
				migrated = true
			}
		case 3:
			// version 3: add rates and forecast settings
			if s.StoreSellDollarsPerKWH == 0 {
				s.StoreSellDollarsPerKWH = DefaultRates().StoreSellDollarsPerKWH
				migrated = true
			}
			if s.BuyDollarsPerKWH == 0 {
				s.BuyDollarsPerKWH = DefaultRates().BuyDollarsPerKWH
				migrated = true
			}
			if s.ForecastHorizonHours == 0 {
				s.ForecastHorizonHours = 24
				migrated = true
			}
			if s.ForecastMode == "" {
				s.ForecastMode = ForecastModeAuto
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
