package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wattwise/wattwise/pkg/types"
)

// testDatabase exercises the behavior shared by every provider. db must be
// empty.
func testDatabase(t *testing.T, db Database) {
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Settings", func(t *testing.T) {
		s, version, err := db.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, version)
		assert.Equal(t, types.Settings{}, s)

		want := types.DefaultSettings()
		want.Battery.CapacityKWH = 27
		require.NoError(t, db.SetSettings(ctx, want, types.CurrentSettingsVersion))

		got, version, err := db.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.CurrentSettingsVersion, version)
		assert.Equal(t, want, got)
	})

	t.Run("Empty", func(t *testing.T) {
		n, err := db.CountReadings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		latest, err := db.GetLatestReadings(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, latest)
	})

	var appended []types.Reading
	t.Run("AppendReading", func(t *testing.T) {
		// appended out of order on purpose
		for _, h := range []int{2, 0, 1, 3} {
			r, err := db.AppendReading(ctx, types.Reading{
				Timestamp:      base.Add(time.Duration(h) * time.Hour),
				ProductionKWH:  float64(h),
				ConsumptionKWH: 1.5,
				BatteryLevel:   5,
				Weather:        types.Weather{Temperature: 21, CloudCover: 0.25, Condition: "Sunny"},
			})
			require.NoError(t, err)
			assert.NotEmpty(t, r.ID)
			appended = append(appended, r)
		}
		assert.NotEqual(t, appended[0].ID, appended[1].ID)

		n, err := db.CountReadings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("GetReadings", func(t *testing.T) {
		readings, err := db.GetReadings(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, readings, 2, "end is exclusive")
		assert.Equal(t, 1.0, readings[0].ProductionKWH)
		assert.Equal(t, 2.0, readings[1].ProductionKWH)
		assert.True(t, readings[0].Timestamp.Equal(base.Add(time.Hour)))
		assert.Equal(t, "Sunny", readings[0].Weather.Condition)

		none, err := db.GetReadings(ctx, base.Add(-2*time.Hour), base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("GetLatestReadings", func(t *testing.T) {
		latest, err := db.GetLatestReadings(ctx, 2)
		require.NoError(t, err)
		require.Len(t, latest, 2)
		assert.Equal(t, 2.0, latest[0].ProductionKWH)
		assert.Equal(t, 3.0, latest[1].ProductionKWH)

		all, err := db.GetLatestReadings(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, all, 4)

		none, err := db.GetLatestReadings(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ReadsAreCopies", func(t *testing.T) {
		latest, err := db.GetLatestReadings(ctx, 1)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		latest[0].ProductionKWH = 99

		again, err := db.GetLatestReadings(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 3.0, again[0].ProductionKWH)
	})

	// the cases below append readings after the ones above
	day := base.Add(24 * time.Hour)

	t.Run("SubMillisecondBounds", func(t *testing.T) {
		at := day.Add(500 * time.Microsecond)
		r, err := db.AppendReading(ctx, types.Reading{Timestamp: at, ProductionKWH: 7})
		require.NoError(t, err)
		assert.True(t, r.Timestamp.Equal(at))

		after, err := db.GetReadings(ctx, day.Add(900*time.Microsecond), day.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, after, "reading before start")

		before, err := db.GetReadings(ctx, day.Add(-time.Hour), day.Add(900*time.Microsecond))
		require.NoError(t, err)
		require.Len(t, before, 1, "reading before end")
		assert.True(t, before[0].Timestamp.Equal(at))

		exact, err := db.GetReadings(ctx, at, at.Add(time.Nanosecond))
		require.NoError(t, err)
		assert.Len(t, exact, 1)

		excluded, err := db.GetReadings(ctx, day, at)
		require.NoError(t, err)
		assert.Empty(t, excluded, "end is exclusive")

		// earlier timestamp within the same millisecond, appended later
		_, err = db.AppendReading(ctx, types.Reading{Timestamp: day.Add(100 * time.Microsecond), ProductionKWH: 6})
		require.NoError(t, err)

		readings, err := db.GetReadings(ctx, day, day.Add(time.Millisecond))
		require.NoError(t, err)
		require.Len(t, readings, 2)
		assert.Equal(t, 6.0, readings[0].ProductionKWH)
		assert.Equal(t, 7.0, readings[1].ProductionKWH)

		latest, err := db.GetLatestReadings(ctx, 1)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, 7.0, latest[0].ProductionKWH)
	})

	t.Run("EqualTimestampsKeepOrder", func(t *testing.T) {
		ts := day.Add(time.Hour)
		first, err := db.AppendReading(ctx, types.Reading{Timestamp: ts, ProductionKWH: 1})
		require.NoError(t, err)
		second, err := db.AppendReading(ctx, types.Reading{Timestamp: ts, ProductionKWH: 2})
		require.NoError(t, err)
		third, err := db.AppendReading(ctx, types.Reading{Timestamp: ts, ProductionKWH: 3})
		require.NoError(t, err)

		latest, err := db.GetLatestReadings(ctx, 2)
		require.NoError(t, err)
		require.Len(t, latest, 2)
		assert.Equal(t, second.ID, latest[0].ID)
		assert.Equal(t, third.ID, latest[1].ID)

		readings, err := db.GetReadings(ctx, ts, ts.Add(time.Nanosecond))
		require.NoError(t, err)
		require.Len(t, readings, 3)
		assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{readings[0].ID, readings[1].ID, readings[2].ID})
	})
}

func TestMemory(t *testing.T) {
	testDatabase(t, NewMemory())
}
