package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/wattwise/wattwise/pkg/types"
)

// Memory is an in-process Database. Readings are kept sorted by timestamp and
// are lost when the process exits.
type Memory struct {
	mu              sync.RWMutex
	readings        []types.Reading
	settings        types.Settings
	settingsVersion int
}

// NewMemory returns an empty in-memory Database.
func NewMemory() *Memory {
	return &Memory{}
}

// GetSettings returns the stored settings and their version. Unset settings
// are returned as the zero value with version 0.
func (m *Memory) GetSettings(ctx context.Context) (types.Settings, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, m.settingsVersion, nil
}

// SetSettings replaces the stored settings.
func (m *Memory) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.settingsVersion = version
	return nil
}

// AppendReading stores the reading with a new ID.
func (m *Memory) AppendReading(ctx context.Context, reading types.Reading) (types.Reading, error) {
	reading.ID = newReadingID()
	reading.Timestamp = reading.Timestamp.UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	// readings with equal timestamps keep their insertion order
	i := sort.Search(len(m.readings), func(i int) bool {
		return m.readings[i].Timestamp.After(reading.Timestamp)
	})
	m.readings = slices.Insert(m.readings, i, reading)
	return reading, nil
}

// GetReadings returns the readings in [start, end).
func (m *Memory) GetReadings(ctx context.Context, start, end time.Time) ([]types.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	from := sort.Search(len(m.readings), func(i int) bool {
		return !m.readings[i].Timestamp.Before(start)
	})
	to := sort.Search(len(m.readings), func(i int) bool {
		return !m.readings[i].Timestamp.Before(end)
	})
	if from >= to {
		return []types.Reading{}, nil
	}
	return slices.Clone(m.readings[from:to]), nil
}

// GetLatestReadings returns up to limit of the newest readings.
func (m *Memory) GetLatestReadings(ctx context.Context, limit int) ([]types.Reading, error) {
	if limit <= 0 {
		return []types.Reading{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.readings) == 0 {
		return []types.Reading{}, nil
	}
	from := max(len(m.readings)-limit, 0)
	return slices.Clone(m.readings[from:]), nil
}

// CountReadings returns the number of stored readings.
func (m *Memory) CountReadings(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.readings), nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
