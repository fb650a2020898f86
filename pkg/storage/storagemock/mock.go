package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/wattwise/wattwise/pkg/storage"
	"github.com/wattwise/wattwise/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	args := m.Called(ctx)
	// return empty if not specified, or checks args
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	args := m.Called(ctx, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) AppendReading(ctx context.Context, reading types.Reading) (types.Reading, error) {
	args := m.Called(ctx, reading)
	if len(args) > 0 {
		return args.Get(0).(types.Reading), args.Error(1)
	}
	return reading, nil
}

func (m *MockDatabase) GetReadings(ctx context.Context, start, end time.Time) ([]types.Reading, error) {
	args := m.Called(ctx, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.Reading), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetLatestReadings(ctx context.Context, limit int) ([]types.Reading, error) {
	args := m.Called(ctx, limit)
	if len(args) > 0 {
		return args.Get(0).([]types.Reading), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) CountReadings(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Int(0), args.Error(1)
	}
	return 0, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
