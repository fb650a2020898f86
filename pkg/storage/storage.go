package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"github.com/wattwise/wattwise/pkg/types"
)

// Database defines the interface for persisting readings and retrieving
// settings. Readings are append-only; every read returns a copy. Readings with
// equal timestamps are returned in the order they were appended, which
// follows from their time-ordered IDs.
type Database interface {
	// Settings
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Readings
	// AppendReading records the reading, assigning it a new ID, and returns
	// the stored copy.
	AppendReading(ctx context.Context, reading types.Reading) (types.Reading, error)
	// GetReadings returns the readings in [start, end) in chronological order.
	GetReadings(ctx context.Context, start, end time.Time) ([]types.Reading, error)
	// GetLatestReadings returns up to limit of the newest readings in
	// chronological order.
	GetLatestReadings(ctx context.Context, limit int) ([]types.Reading, error)
	CountReadings(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "memory", "Storage provider to use (available: memory, firestore, redis)")
	homeID := lflag.String("home-id", "default", "ID of the home whose readings and settings are stored")

	var p struct{ Database }

	fs := configuredFirestore()
	rs := configuredRedis()

	lflag.Do(func() {
		switch *provider {
		case "memory":
			p.Database = NewMemory()
		case "firestore":
			fs.homeID = *homeID
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "redis":
			rs.homeID = *homeID
			if err := rs.Validate(); err != nil {
				panic(fmt.Sprintf("redis validation failed: %v", err))
			}
			p.Database = rs
			if err := rs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("redis init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

// newReadingID returns a time-ordered (version 7) UUID. IDs generated by one
// process sort in the order they were created.
func newReadingID() string {
	return uuid.Must(uuid.NewV7()).String()
}
