package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/creatorpulse/creatorpulse/domain"
	cperrors "github.com/creatorpulse/creatorpulse/errors"
)

type MetricHistoryRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMetricHistoryRepository creates the repository and its indexes: the
// unique series-point index backing idempotent backfill, a (platform,
// metric) secondary index, and a recorded_at index for retention sweeps.
func NewMetricHistoryRepository(ctx context.Context, db *mongo.Database) (*MetricHistoryRepository, error) {
	coll := db.Collection(MetricSamplesCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "platform", Value: 1},
				{Key: "identifier", Value: 1},
				{Key: "metric", Value: 1},
				{Key: "recorded_at", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "platform", Value: 1}, {Key: "metric", Value: 1}}},
		{Keys: bson.D{{Key: "recorded_at", Value: 1}}},
	})
	if err != nil {
		return nil, cperrors.NewStorageError("failed to create metric sample indexes", err)
	}

	return &MetricHistoryRepository{coll: coll, now: time.Now}, nil
}

// Append writes one sample. A zero RecordedAt defaults to the write time.
// An explicit RecordedAt that collides exactly with an existing sample for
// the same series overwrites its value, making backfill idempotent.
func (r *MetricHistoryRepository) Append(ctx context.Context, sample *domain.MetricSample) error {
	recordedAt := sample.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = r.now().UTC()
	}

	filter := bson.M{
		"user_id":     sample.UserID,
		"platform":    sample.Platform,
		"identifier":  sample.Identifier,
		"metric":      sample.Metric,
		"recorded_at": recordedAt,
	}
	update := bson.M{
		"$set":         bson.M{"value": sample.Value},
		"$setOnInsert": bson.M{"_id": uuid.NewString()},
	}

	if _, err := r.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return cperrors.NewStorageError("failed to append metric sample", err)
	}
	sample.RecordedAt = recordedAt
	return nil
}

// Window returns the samples of one series with recorded_at >= since,
// oldest first.
func (r *MetricHistoryRepository) Window(ctx context.Context, key domain.MetricKey, since time.Time) ([]domain.MetricSample, error) {
	filter := bson.M{
		"user_id":     key.UserID,
		"platform":    key.Platform,
		"identifier":  key.Identifier,
		"metric":      key.Metric,
		"recorded_at": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, cperrors.NewStorageError("failed to query metric window", err)
	}
	defer cursor.Close(ctx)

	var samples []domain.MetricSample
	if err := cursor.All(ctx, &samples); err != nil {
		return nil, cperrors.NewStorageError("failed to decode metric samples", err)
	}
	return samples, nil
}

// DeleteOlderThan removes samples recorded before cutoff and returns how
// many were deleted.
func (r *MetricHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"recorded_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, cperrors.NewStorageError("failed to prune metric samples", err)
	}
	return result.DeletedCount, nil
}
