package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
	interfaces "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const labelOpTimeout = 3 * time.Second

type MongoLabelRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoLabelRepository(coll *mongo.Collection) *MongoLabelRepository {
	return &MongoLabelRepository{coll: coll, now: utcNow}
}

func (r *MongoLabelRepository) FindByAddress(ctx context.Context, address string) (*eslmodels.Label, error) {
	ctx, cancel := context.WithTimeout(ctx, labelOpTimeout)
	defer cancel()

	var label eslmodels.Label
	err := r.coll.FindOne(ctx, byAddress(address)).Decode(&label)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotRegistered
		}
		return nil, fmt.Errorf("find label: %w", err)
	}
	return &label, nil
}

func (r *MongoLabelRepository) List(ctx context.Context, page, pageSize int) (*interfaces.PaginationResult, error) {
	page, pageSize = clampPage(page, pageSize)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count labels: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer cursor.Close(ctx)

	labels := make([]eslmodels.Label, 0, pageSize)
	if err := cursor.All(ctx, &labels); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}

	return paginate(labels, page, pageSize, int(total)), nil
}

func (r *MongoLabelRepository) CreateDefault(ctx context.Context, address string) (*eslmodels.Label, error) {
	ctx, cancel := context.WithTimeout(ctx, labelOpTimeout)
	defer cancel()

	label := eslmodels.NewLabel(address, r.now())
	res, err := r.coll.InsertOne(ctx, label)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, interfaces.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert label: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		label.ID = id
	}
	return label, nil
}

func (r *MongoLabelRepository) ApplyUpdate(ctx context.Context, address, name, price string) (*eslmodels.Label, error) {
	return r.findAndSet(ctx, address, bson.M{
		"productName": name,
		"price":       price,
		"updatedAt":   r.now(),
	})
}

func (r *MongoLabelRepository) RecordTelemetry(ctx context.Context, address string, update eslmodels.TelemetryUpdate) (*eslmodels.Label, error) {
	checkedIn := update.CheckedInAt
	if checkedIn.IsZero() {
		checkedIn = r.now()
	}

	set := bson.M{"lastCheckIn": checkedIn}
	if update.BatteryLevel != nil {
		set["batteryLevel"] = *update.BatteryLevel
	}
	if update.WifiSignal != nil {
		set["wifiSignal"] = *update.WifiSignal
	}
	return r.findAndSet(ctx, address, set)
}

// findAndSet applies a single-document $set and returns the updated record
func (r *MongoLabelRepository) findAndSet(ctx context.Context, address string, set bson.M) (*eslmodels.Label, error) {
	ctx, cancel := context.WithTimeout(ctx, labelOpTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var label eslmodels.Label
	err := r.coll.FindOneAndUpdate(ctx, byAddress(address), bson.M{"$set": set}, opts).Decode(&label)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotRegistered
		}
		return nil, fmt.Errorf("update label: %w", err)
	}
	return &label, nil
}

func byAddress(address string) bson.M {
	return bson.M{"macAddress": eslmodels.NormalizeAddress(address)}
}
