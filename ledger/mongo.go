package ledger

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chanscribe/types"
)

// MongoLedger stores video records in a MongoDB collection keyed by
// video_id.
type MongoLedger struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoLedger connects to MongoDB and verifies the connection.
func NewMongoLedger(ctx context.Context, uri, database, collection string) (*MongoLedger, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoLedger{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Close disconnects from MongoDB.
func (l *MongoLedger) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}

// KnownIDs fetches every video_id in the collection as a set.
func (l *MongoLedger) KnownIDs(ctx context.Context) (map[string]bool, error) {
	cursor, err := l.collection.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"video_id": 1, "_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to query video ids: %w", err)
	}
	defer cursor.Close(ctx)

	ids := make(map[string]bool)
	for cursor.Next(ctx) {
		var row struct {
			VideoID string `bson:"video_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue // skip malformed rows
		}
		if row.VideoID != "" {
			ids[row.VideoID] = true
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return ids, nil
}

// Unprocessed returns rows whose transcript has not been durably stored.
func (l *MongoLedger) Unprocessed(ctx context.Context) ([]types.VideoRecord, error) {
	filter := bson.M{
		"processed_at": nil,
		"skipped":      bson.M{"$ne": true},
	}

	cursor, err := l.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed videos: %w", err)
	}
	defer cursor.Close(ctx)

	var records []types.VideoRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode unprocessed videos: %w", err)
	}

	return records, nil
}

// Upsert writes the full row for record.VideoID, inserting it if absent.
func (l *MongoLedger) Upsert(ctx context.Context, record *types.VideoRecord) error {
	filter := bson.M{"video_id": record.VideoID}
	update := bson.M{"$set": record}

	_, err := l.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert video %s: %w", record.VideoID, err)
	}
	return nil
}

// MarkProcessed records that the video's transcript is durably stored.
func (l *MongoLedger) MarkProcessed(ctx context.Context, videoID string, processedAt time.Time) error {
	filter := bson.M{"video_id": videoID}
	update := bson.M{"$set": bson.M{"processed_at": processedAt}}

	res, err := l.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark video %s processed: %w", videoID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("no ledger row for video %s", videoID)
	}
	return nil
}
