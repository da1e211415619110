package store

import (
	"errors"
	"testing"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func TestMongoState_AddressedWithoutID(t *testing.T) {
	assert.Empty(t, stateFilter(), "the singleton must match whatever _id the first writer chose")
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, stateSort())
}

func TestMongoState_UpsertOnlySetsIDOnInsert(t *testing.T) {
	id := bson.NewObjectID()
	update := stateUpsert(models.GlobalState{
		MonthlyBudget: decimal.NewFromInt(5000),
		ArchivedSpend: decimal.RequireFromString("12.5"),
	}, id)

	raw, err := bson.Marshal(update)
	require.NoError(t, err)
	var doc struct {
		Set         bson.M `bson:"$set"`
		SetOnInsert bson.M `bson:"$setOnInsert"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))

	assert.Equal(t, 5000.0, doc.Set["monthlyBudget"])
	assert.Equal(t, 12.5, doc.Set["archivedSpend"])
	assert.NotContains(t, doc.Set, "_id")
	assert.Equal(t, id, doc.SetOnInsert["_id"])
}

func TestMongoState_DecodesExistingObjectIDDocument(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: bson.NewObjectID()},
		{Key: "monthlyBudget", Value: 5000.0},
		{Key: "archivedSpend", Value: 250.0},
		{Key: "__v", Value: 0},
	})
	require.NoError(t, err)

	var doc stateDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, 5000.0, doc.MonthlyBudget)
	assert.Equal(t, 250.0, doc.ArchivedSpend)
}

func TestMongoCategoryIndex_NamedApartFromDefault(t *testing.T) {
	model := categoryIndexModel()
	assert.Equal(t, bson.D{{Key: "name", Value: 1}}, model.Keys)

	var opts options.IndexOptions
	for _, set := range model.Options.Opts {
		require.NoError(t, set(&opts))
	}
	require.NotNil(t, opts.Name)
	assert.Equal(t, "name_ci", *opts.Name)
	assert.NotEqual(t, "name_1", *opts.Name)
	require.NotNil(t, opts.Unique)
	assert.True(t, *opts.Unique)
	require.NotNil(t, opts.Collation)
	assert.Equal(t, 2, opts.Collation.Strength)
}

func TestMongoIndexConflictTolerated(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"options conflict", mongo.CommandError{Code: 85, Name: "IndexOptionsConflict"}, true},
		{"key spec conflict", mongo.CommandError{Code: 86, Name: "IndexKeySpecsConflict"}, true},
		{"existing duplicates", mongo.CommandError{Code: 11000}, true},
		{"unauthorized", mongo.CommandError{Code: 13, Name: "Unauthorized"}, false},
		{"network", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isIndexConflict(tt.err))
		})
	}
}

func TestMongoStateLockTouchesDocument(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	update := stateLockUpdate(now)
	require.Len(t, update, 1)
	assert.Equal(t, "$set", update[0].Key)
	assert.Equal(t, bson.D{{Key: "lockedAt", Value: now}}, update[0].Value)
}
