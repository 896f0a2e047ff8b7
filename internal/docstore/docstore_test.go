package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"gorm.io/gorm"

	"taskpulse/internal/model"
	"taskpulse/internal/repository"
)

func TestTaskStore_CompletedSince(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes timestamps", func(mt *mtest.T) {
		store := NewTaskStore(mt.Coll)
		first := time.Date(2025, time.August, 1, 9, 0, 0, 0, time.UTC)
		second := time.Date(2025, time.August, 3, 18, 30, 0, 0, time.UTC)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "a"}, {Key: "updatedAt", Value: primitive.NewDateTimeFromTime(first)}}),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch,
				bson.D{{Key: "_id", Value: "b"}, {Key: "updatedAt", Value: primitive.NewDateTimeFromTime(second)}}),
		)

		stamps, err := store.CompletedSince(context.Background(), uuid.NewString(), first.AddDate(0, 0, -7))
		require.NoError(mt, err)
		require.Len(mt, stamps, 2)
		assert.True(mt, first.Equal(stamps[0]))
		assert.True(mt, second.Equal(stamps[1]))
	})

	mt.Run("server error", func(mt *mtest.T) {
		store := NewTaskStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11600, Message: "interrupted at shutdown"}))

		_, err := store.CompletedSince(context.Background(), uuid.NewString(), time.Now())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "interrupted at shutdown")
	})

	mt.Run("invalid user", func(mt *mtest.T) {
		store := NewTaskStore(mt.Coll)
		_, err := store.CompletedSince(context.Background(), "nope", time.Now())
		assert.ErrorIs(mt, err, repository.ErrInvalidID)
	})
}

func TestTaskStore_CategoryCounts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("groups", func(mt *mtest.T) {
		store := NewTaskStore(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "work"}, {Key: "count", Value: int32(3)}},
			bson.D{{Key: "_id", Value: ""}, {Key: "count", Value: int32(1)}},
		))

		now := time.Now()
		rows, err := store.CategoryCounts(context.Background(), uuid.NewString(), now.AddDate(0, 0, -30), now)
		require.NoError(mt, err)
		assert.Equal(mt, []model.CategoryCount{{Category: "work", Count: 3}, {Category: "", Count: 1}}, rows)
	})

	mt.Run("invalid user", func(mt *mtest.T) {
		store := NewTaskStore(mt.Coll)
		_, err := store.CategoryCounts(context.Background(), "", time.Now(), time.Now())
		assert.ErrorIs(mt, err, repository.ErrInvalidID)
	})
}

func TestTaskStore_UpsertTasks(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("writes", func(mt *mtest.T) {
		store := NewTaskStore(mt.Coll)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: int32(2)},
			{Key: "nModified", Value: int32(1)},
			{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: int32(0)}, {Key: "_id", Value: "a"}}}},
		})

		n, err := store.UpsertTasks(context.Background(), []model.Task{
			{ID: "a", UserID: "u", Title: "new", Status: model.StatusPending},
			{ID: "b", UserID: "u", Title: "old", Status: model.StatusCompleted},
		})
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)
	})

	mt.Run("nothing to write", func(mt *mtest.T) {
		store := NewTaskStore(mt.Coll)
		n, err := store.UpsertTasks(context.Background(), nil)
		require.NoError(mt, err)
		assert.Zero(mt, n)
	})
}

func TestToDoc(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	due := time.Date(2025, time.August, 20, 17, 0, 0, 0, loc)
	doc := toDoc(model.Task{
		ID:        "id",
		UserID:    "u",
		Category:  "work",
		Status:    model.StatusCompleted,
		DueDate:   &due,
		UpdatedAt: time.Date(2025, time.August, 15, 12, 0, 0, 0, loc),
		DeletedAt: gorm.DeletedAt{},
	})
	assert.Equal(t, time.UTC, doc.UpdatedAt.Location())
	assert.Equal(t, 9, doc.UpdatedAt.Hour())
	require.NotNil(t, doc.DueDate)
	assert.Equal(t, 14, doc.DueDate.Hour())
}
