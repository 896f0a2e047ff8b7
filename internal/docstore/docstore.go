// Package docstore keeps a MongoDB copy of tasks for analytics reads.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"taskpulse/internal/model"
	"taskpulse/internal/repository"
)

const (
	DefaultDatabase   = "taskpulse"
	TasksCollection   = "tasks"
	connectTimeout    = 10 * time.Second
	maxUpsertsPerCall = 500
)

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo uri not set")
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Println("[info] mongo connected")
	return client, nil
}

// taskDoc is the stored shape of a task.
type taskDoc struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"userId"`
	Title     string     `bson:"title"`
	Category  string     `bson:"category"`
	Priority  string     `bson:"priority"`
	Status    string     `bson:"status"`
	DueDate   *time.Time `bson:"dueDate,omitempty"`
	CreatedAt time.Time  `bson:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

// TaskStore serves completion analytics from a task collection.
type TaskStore struct {
	coll *mongo.Collection
}

func NewTaskStore(coll *mongo.Collection) *TaskStore {
	return &TaskStore{coll: coll}
}

// Open returns the store backed by database's task collection.
func Open(client *mongo.Client, database string) *TaskStore {
	if database == "" {
		database = DefaultDatabase
	}
	return NewTaskStore(client.Database(database).Collection(TasksCollection))
}

// EnsureIndexes creates the indexes the analytics filters use.
func (s *TaskStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create task indexes: %w", err)
	}
	return nil
}

// CompletedSince returns the completion timestamps of the user's tasks
// completed at or after since.
func (s *TaskStore) CompletedSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	if !repository.ValidID(userID) {
		return nil, repository.ErrInvalidID
	}
	filter := bson.M{
		"userId":    userID,
		"status":    model.StatusCompleted,
		"updatedAt": bson.M{"$gte": since.UTC()},
	}
	opts := options.Find().
		SetProjection(bson.M{"updatedAt": 1}).
		SetSort(bson.D{{Key: "updatedAt", Value: 1}})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query completed tasks: %w", err)
	}
	defer cur.Close(ctx)

	var stamps []time.Time
	for cur.Next(ctx) {
		var doc struct {
			UpdatedAt time.Time `bson:"updatedAt"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode completed task: %w", err)
		}
		stamps = append(stamps, doc.UpdatedAt)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed tasks: %w", err)
	}
	return stamps, nil
}

// CategoryCounts groups the user's tasks completed within [from, to] by
// category, largest group first.
func (s *TaskStore) CategoryCounts(ctx context.Context, userID string, from, to time.Time) ([]model.CategoryCount, error) {
	if !repository.ValidID(userID) {
		return nil, repository.ErrInvalidID
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"userId":    userID,
			"status":    model.StatusCompleted,
			"updatedAt": bson.M{"$gte": from.UTC(), "$lte": to.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate category counts: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Category string `bson:"_id"`
		Count    int    `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode category counts: %w", err)
	}

	out := make([]model.CategoryCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.CategoryCount{Category: row.Category, Count: row.Count})
	}
	return out, nil
}

// UpsertTasks replaces the stored copy of every task, inserting new ones.
// Soft-deleted tasks are removed.
func (s *TaskStore) UpsertTasks(ctx context.Context, tasks []model.Task) (int64, error) {
	var written int64
	for start := 0; start < len(tasks); start += maxUpsertsPerCall {
		end := start + maxUpsertsPerCall
		if end > len(tasks) {
			end = len(tasks)
		}

		models := make([]mongo.WriteModel, 0, end-start)
		for _, task := range tasks[start:end] {
			if task.DeletedAt.Valid {
				models = append(models, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": task.ID}))
				continue
			}
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": task.ID}).
				SetReplacement(toDoc(task)).
				SetUpsert(true))
		}

		res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return written, fmt.Errorf("bulk write tasks: %w", err)
		}
		written += res.UpsertedCount + res.ModifiedCount + res.DeletedCount
	}
	return written, nil
}

func toDoc(t model.Task) taskDoc {
	doc := taskDoc{
		ID:        t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Category:  t.Category,
		Priority:  t.Priority,
		Status:    t.Status,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC()
		doc.DueDate = &due
	}
	return doc
}
