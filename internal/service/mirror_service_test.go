package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/model"
	"taskpulse/internal/repository"
	"taskpulse/internal/repository/repotest"
)

type memoryMirror struct {
	batches [][]model.Task
	err     error
}

func (m *memoryMirror) UpsertTasks(_ context.Context, tasks []model.Task) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.batches = append(m.batches, tasks)
	return int64(len(tasks)), nil
}

type steppingClock struct{ now time.Time }

func (c *steppingClock) Now() time.Time { return c.now }

func mirroredIDs(tasks []model.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func TestMirrorService_Sync(t *testing.T) {
	ctx := context.Background()
	clock := &steppingClock{now: time.Date(2025, time.August, 15, 12, 0, 0, 0, time.UTC)}
	db := repotest.NewDB(t, clock.Now)
	repo := repository.NewTaskRepository(db)
	mirror := &memoryMirror{}
	svc := NewMirrorService(repo, mirror, clock)

	user := uuid.NewString()
	a := model.Task{UserID: user, Title: "a"}
	b := model.Task{UserID: user, Title: "b"}
	require.NoError(t, repo.Create(ctx, &a))
	require.NoError(t, repo.Create(ctx, &b))

	n, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Rows within the overlap of the previous sync are copied again.
	clock.now = clock.now.Add(time.Hour)
	n, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	clock.now = clock.now.Add(time.Hour)
	n, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.now = clock.now.Add(time.Hour)
	require.NoError(t, repo.Delete(ctx, user, a.ID))

	n, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	last := mirror.batches[len(mirror.batches)-1]
	require.Len(t, last, 1)
	assert.Equal(t, a.ID, last[0].ID)
	assert.True(t, last[0].DeletedAt.Valid)

	clock.now = clock.now.Add(time.Hour)
	b.Title = "b2"
	require.NoError(t, repo.Save(ctx, &b))
	mirror.err = errors.New("mirror down")
	_, err = svc.Sync(ctx)
	require.Error(t, err)

	mirror.err = nil
	clock.now = clock.now.Add(time.Hour)
	_, err = svc.Sync(ctx)
	require.NoError(t, err)
	last = mirror.batches[len(mirror.batches)-1]
	assert.Contains(t, mirroredIDs(last), b.ID, "failed batch is retried")
}

func TestMirrorService_SyncPicksUpLateCommits(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, time.August, 15, 12, 0, 0, 0, time.UTC)
	clock := &steppingClock{now: start}
	db := repotest.NewDB(t, clock.Now)
	repo := repository.NewTaskRepository(db)
	mirror := &memoryMirror{}
	svc := NewMirrorService(repo, mirror, clock)

	n, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Stamped just before the sync started, committed after it read.
	clock.now = start.Add(-time.Millisecond)
	late := model.Task{UserID: uuid.NewString(), Title: "late", Status: model.StatusCompleted}
	require.NoError(t, repo.Create(ctx, &late))

	clock.now = start.Add(time.Minute)
	n, err = svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NotEmpty(t, mirror.batches)
	assert.Equal(t, []string{late.ID}, mirroredIDs(mirror.batches[len(mirror.batches)-1]))
}
