package implementation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	eslmodels "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Models"
	interfaces "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoLabelRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find unknown address", func(mt *mtest.T) {
		repo := NewMongoLabelRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "esl.labels", mtest.FirstBatch))

		_, err := repo.FindByAddress(context.Background(), "ff:ff:ff:ff:ff:ff")
		assert.ErrorIs(t, err, interfaces.ErrNotRegistered)
	})

	mt.Run("find decodes stored label", func(mt *mtest.T) {
		repo := NewMongoLabelRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "esl.labels", mtest.FirstBatch, bson.D{
			{Key: "macAddress", Value: "A0:B1:C2:D3:44:55"},
			{Key: "productName", Value: "Milk 1L"},
			{Key: "price", Value: "65.00"},
			{Key: "currency", Value: "₹"},
			{Key: "batteryLevel", Value: 77},
		}))

		label, err := repo.FindByAddress(context.Background(), "a0:b1:c2:d3:44:55")
		require.NoError(t, err)
		assert.Equal(t, "Milk 1L", label.ProductName)
		assert.Equal(t, 77, label.BatteryLevel)
	})

	mt.Run("create duplicate address", func(mt *mtest.T) {
		repo := NewMongoLabelRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: esl.labels index: macAddress_1",
		}))

		_, err := repo.CreateDefault(context.Background(), "A0:B1:C2:D3:44:55")
		assert.ErrorIs(t, err, interfaces.ErrDuplicateKey)
	})

	mt.Run("create applies defaults", func(mt *mtest.T) {
		repo := NewMongoLabelRepository(mt.Coll)
		now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
		repo.now = func() time.Time { return now }
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		label, err := repo.CreateDefault(context.Background(), " a0:b1:c2:d3:44:55")
		require.NoError(t, err)
		assert.Equal(t, "A0:B1:C2:D3:44:55", label.MacAddress)
		assert.Equal(t, eslmodels.DefaultProductName, label.ProductName)
		assert.Equal(t, now, label.CreatedAt)
		assert.False(t, label.ID.IsZero())
	})

	mt.Run("update unknown address", func(mt *mtest.T) {
		repo := NewMongoLabelRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.ApplyUpdate(context.Background(), "FF:FF:FF:FF:FF:FF", "Milk 1L", "65.00")
		assert.ErrorIs(t, err, interfaces.ErrNotRegistered)
	})

	mt.Run("update returns new document", func(mt *mtest.T) {
		repo := NewMongoLabelRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "macAddress", Value: "A0:B1:C2:D3:44:55"},
			{Key: "productName", Value: "Milk 1L"},
			{Key: "price", Value: "65.00"},
			{Key: "currency", Value: "₹"},
		}}))

		label, err := repo.ApplyUpdate(context.Background(), "a0:b1:c2:d3:44:55", "Milk 1L", "65.00")
		require.NoError(t, err)
		assert.Equal(t, "Milk 1L", label.ProductName)
		assert.Equal(t, "65.00", label.Price)
	})
}
