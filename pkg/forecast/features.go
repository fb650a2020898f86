package forecast

import (
	"math"
	"time"

	"github.com/wattwise/wattwise/pkg/types"
)

// numFeatures is the length of the vector returned by features.
const numFeatures = 6

// features encodes the hour of day and day of week as sine/cosine pairs so
// that 23:00 is next to 00:00 and Sunday is next to Monday, followed by the
// temperature and cloud cover.
func features(ts time.Time, w types.Weather) []float64 {
	ts = ts.UTC()
	hour := float64(ts.Hour())
	// Monday is 0
	day := float64((int(ts.Weekday()) + 6) % 7)
	return []float64{
		math.Sin(2 * math.Pi * hour / 24),
		math.Cos(2 * math.Pi * hour / 24),
		math.Sin(2 * math.Pi * day / 7),
		math.Cos(2 * math.Pi * day / 7),
		w.Temperature,
		w.CloudCover,
	}
}
