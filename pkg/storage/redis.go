package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/redis/go-redis/v9"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/types"
)

// RedisProvider implements the Database interface using Redis.
// Readings are members of a sorted set scored by their timestamp in
// milliseconds and settings are kept in a hash.
type RedisProvider struct {
	client   *redis.Client
	addr     string
	password string
	db       int
	prefix   string
	homeID   string
}

// configuredRedis sets up the Redis provider.
// It registers flags for configuration.
func configuredRedis() *RedisProvider {
	addr := lflag.String("redis-addr", "127.0.0.1:6379", "Address of the Redis server")
	password := lflag.String("redis-password", "", "Password for the Redis server")
	db := lflag.Int("redis-db", 0, "Redis database number")
	prefix := lflag.String("redis-prefix", "wattwise:", "Prefix for all Redis keys")

	r := &RedisProvider{}

	lflag.Do(func() {
		r.addr = *addr
		r.password = *password
		r.db = *db
		r.prefix = *prefix
	})

	return r
}

// NewRedisProvider returns a provider using an existing client.
func NewRedisProvider(client *redis.Client, prefix, homeID string) *RedisProvider {
	return &RedisProvider{
		client: client,
		prefix: prefix,
		homeID: homeID,
	}
}

// Validate checks if the provider is properly configured.
func (r *RedisProvider) Validate() error {
	if r.addr == "" {
		return errors.New("redis-addr cannot be empty")
	}
	if r.homeID == "" {
		return errors.New("home-id cannot be empty")
	}
	return nil
}

// Init connects to Redis and checks the connection.
func (r *RedisProvider) Init(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     r.addr,
		Password: r.password,
		DB:       r.db,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to redis (addr=%s): %w", r.addr, err)
	}
	r.client = client
	return nil
}

// Close closes the Redis client connection.
func (r *RedisProvider) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RedisProvider) key(name string) string {
	return r.prefix + r.homeID + ":" + name
}

// GetSettings retrieves the dynamic configuration from the settings hash.
func (r *RedisProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	fields, err := r.client.HGetAll(ctx, r.key("settings")).Result()
	if err != nil {
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings: %w", err)
	}
	jsonStr, ok := fields["json"]
	if !ok {
		// migration fills in the defaults
		return types.Settings{}, 0, nil
	}

	// Read version if available (default 0)
	var version int
	if v, ok := fields["version"]; ok {
		version, err = strconv.Atoi(v)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "settings version not an int", slog.String("version", v))
			version = 0
		}
	}

	var s types.Settings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal settings json", slog.Any("err", err))
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings json: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the settings hash.
func (r *RedisProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := r.client.HSet(ctx, r.key("settings"), "json", string(jsonBytes), "version", version).Err(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// AppendReading adds the reading to the readings sorted set. The member is the
// reading's JSON, which starts with the new ID, so readings in the same
// millisecond are ordered by ID.
func (r *RedisProvider) AppendReading(ctx context.Context, reading types.Reading) (types.Reading, error) {
	reading.ID = newReadingID()
	reading.Timestamp = reading.Timestamp.UTC()

	jsonBytes, err := json.Marshal(reading)
	if err != nil {
		return types.Reading{}, fmt.Errorf("failed to marshal reading: %w", err)
	}
	err = r.client.ZAdd(ctx, r.key("readings"), redis.Z{
		Score:  float64(floorMilli(reading.Timestamp)),
		Member: string(jsonBytes),
	}).Err()
	if err != nil {
		return types.Reading{}, fmt.Errorf("failed to append reading: %w", err)
	}
	return reading, nil
}

// GetReadings retrieves readings within the specified time range. Scores only
// have millisecond precision so the bounds are widened to whole milliseconds
// and the exact range is applied to the decoded timestamps.
func (r *RedisProvider) GetReadings(ctx context.Context, start, end time.Time) ([]types.Reading, error) {
	members, err := r.client.ZRangeByScore(ctx, r.key("readings"), &redis.ZRangeBy{
		Min: strconv.FormatInt(floorMilli(start), 10),
		// exclusive end
		Max: "(" + strconv.FormatInt(ceilMilli(end), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range readings: %w", err)
	}
	readings, err := decodeReadings(ctx, members)
	if err != nil {
		return nil, err
	}
	readings = slices.DeleteFunc(readings, func(reading types.Reading) bool {
		return reading.Timestamp.Before(start) || !reading.Timestamp.Before(end)
	})
	sortReadings(readings)
	return readings, nil
}

// GetLatestReadings retrieves the newest readings, oldest first.
func (r *RedisProvider) GetLatestReadings(ctx context.Context, limit int) ([]types.Reading, error) {
	if limit <= 0 {
		return []types.Reading{}, nil
	}
	// the oldest score of the newest members bounds the window, which is then
	// read in full since members within a millisecond are not in timestamp
	// order
	newest, err := r.client.ZRevRangeWithScores(ctx, r.key("readings"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest readings: %w", err)
	}
	if len(newest) == 0 {
		return []types.Reading{}, nil
	}
	members, err := r.client.ZRangeByScore(ctx, r.key("readings"), &redis.ZRangeBy{
		Min: strconv.FormatFloat(newest[len(newest)-1].Score, 'f', -1, 64),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest readings: %w", err)
	}
	readings, err := decodeReadings(ctx, members)
	if err != nil {
		return nil, err
	}
	sortReadings(readings)
	return readings[max(len(readings)-limit, 0):], nil
}

// CountReadings returns the cardinality of the readings sorted set.
func (r *RedisProvider) CountReadings(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.key("readings")).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return int(n), nil
}

func decodeReadings(ctx context.Context, members []string) ([]types.Reading, error) {
	readings := make([]types.Reading, 0, len(members))
	for _, m := range members {
		var reading types.Reading
		if err := json.Unmarshal([]byte(m), &reading); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal reading", slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// sortReadings orders readings by timestamp, keeping the order of equal
// timestamps.
func sortReadings(readings []types.Reading) {
	slices.SortStableFunc(readings, func(a, b types.Reading) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}

// floorMilli returns the largest millisecond timestamp not after t.
func floorMilli(t time.Time) int64 {
	ms := t.UnixMilli()
	if time.UnixMilli(ms).After(t) {
		ms--
	}
	return ms
}

// ceilMilli returns the smallest millisecond timestamp not before t.
func ceilMilli(t time.Time) int64 {
	ms := floorMilli(t)
	if time.UnixMilli(ms).Before(t) {
		ms++
	}
	return ms
}
