package implementation

import (
	"context"
	"fmt"
	"time"

	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoTelemetryRepository struct {
	coll *mongo.Collection
}

func NewMongoTelemetryRepository(coll *mongo.Collection) *MongoTelemetryRepository {
	return &MongoTelemetryRepository{coll: coll}
}

func (r *MongoTelemetryRepository) Append(ctx context.Context, entry eslmodels.TelemetryLog) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	entry = prepareLog(entry)
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("append telemetry: %w", err)
	}
	return nil
}

func (r *MongoTelemetryRepository) ListByAddress(ctx context.Context, address string, limit int) ([]eslmodels.TelemetryLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))

	cursor, err := r.coll.Find(ctx, byAddress(address), opts)
	if err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	defer cursor.Close(ctx)

	logs := make([]eslmodels.TelemetryLog, 0)
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decode telemetry: %w", err)
	}
	return logs, nil
}
