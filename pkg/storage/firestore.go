package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/levenlabs/go-lflag"
	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// readingDocIDLayout is fixed width so document IDs sort chronologically.
const readingDocIDLayout = "2006-01-02T15:04:05.000000000Z"

// FirestoreProvider implements the Database interface using Google Cloud Firestore.
// It persists settings and readings under homes/{homeID}.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
	homeID    string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// the project ID may be inferred from the environment
	if f.homeID == "" {
		return fmt.Errorf("home-id cannot be empty")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) collection(name string) *firestore.CollectionRef {
	return f.client.Collection("homes").Doc(f.homeID).Collection(name)
}

// GetSettings retrieves the dynamic configuration from the "config/settings" document.
func (f *FirestoreProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	doc, err := f.collection("config").Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// migration fills in the defaults
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	var s types.Settings
	if err := decodeJSONField(ctx, doc, &s); err != nil {
		return types.Settings{}, 0, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the "config/settings" document.
// It stores the settings as a JSON string for portability.
func (f *FirestoreProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = f.collection("config").Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func readingDocID(r types.Reading) string {
	return r.Timestamp.UTC().Format(readingDocIDLayout) + "_" + r.ID
}

// AppendReading adds the reading to the "readings" collection as a JSON blob.
// The document ID starts with the timestamp for efficient range queries and
// ends with the reading ID so readings sharing a timestamp are all kept.
func (f *FirestoreProvider) AppendReading(ctx context.Context, reading types.Reading) (types.Reading, error) {
	reading.ID = newReadingID()
	reading.Timestamp = reading.Timestamp.UTC()

	jsonBytes, err := json.Marshal(reading)
	if err != nil {
		return types.Reading{}, fmt.Errorf("failed to marshal reading: %w", err)
	}

	// Create fails instead of overwriting so the log stays append-only
	_, err = f.collection("readings").Doc(readingDocID(reading)).Create(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": reading.Timestamp,
	})
	if err != nil {
		return types.Reading{}, fmt.Errorf("failed to append reading: %w", err)
	}
	return reading, nil
}

// GetReadings retrieves readings within the specified time range.
// Uses document ID range queries for efficient filtering without reading all documents.
func (f *FirestoreProvider) GetReadings(ctx context.Context, start, end time.Time) ([]types.Reading, error) {
	coll := f.collection("readings")
	startDocID := start.UTC().Format(readingDocIDLayout)
	endDocID := end.UTC().Format(readingDocIDLayout)

	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	return collectReadings(ctx, iter)
}

// GetLatestReadings retrieves the newest readings, oldest first.
func (f *FirestoreProvider) GetLatestReadings(ctx context.Context, limit int) ([]types.Reading, error) {
	if limit <= 0 {
		return []types.Reading{}, nil
	}
	iter := f.collection("readings").
		OrderBy(firestore.DocumentID, firestore.Desc).
		Limit(limit).
		Documents(ctx)
	readings, err := collectReadings(ctx, iter)
	if err != nil {
		return nil, err
	}
	slices.Reverse(readings)
	return readings, nil
}

// CountReadings counts the readings with an aggregation query.
func (f *FirestoreProvider) CountReadings(ctx context.Context) (int, error) {
	res, err := f.collection("readings").NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result type %T", res["all"])
	}
	return int(v.GetIntegerValue()), nil
}

func collectReadings(ctx context.Context, iter *firestore.DocumentIterator) ([]types.Reading, error) {
	defer iter.Stop()

	readings := []types.Reading{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating readings: %w", err)
		}

		var r types.Reading
		if err := decodeJSONField(ctx, doc, &r); err != nil {
			return nil, fmt.Errorf("failed to decode reading (id=%s): %w", doc.Ref.ID, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// decodeJSONField unmarshals the "json" field of the document into v.
func decodeJSONField(ctx context.Context, doc *firestore.DocumentSnapshot, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("docID", doc.Ref.ID))
		return fmt.Errorf("document %s 'json' field is not string", doc.Ref.ID)
	}

	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return nil
}
