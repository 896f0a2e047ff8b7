package service

import (
	"context"
	"sync"
	"time"

	"taskpulse/internal/calendar"
	"taskpulse/internal/model"
	"taskpulse/internal/repository"
)

// mirrorOverlap is how far behind the previous sync a sync starts reading, so
// rows stamped before it but committed after it are still picked up.
const mirrorOverlap = time.Minute

// TaskMirror receives copies of changed tasks.
type TaskMirror interface {
	UpsertTasks(ctx context.Context, tasks []model.Task) (int64, error)
}

// MirrorService copies task changes from the primary store to a mirror,
// so analytics can be served from the mirror.
type MirrorService struct {
	tasks  *repository.TaskRepository
	mirror TaskMirror
	clock  calendar.Clock

	mu       sync.Mutex
	lastSync time.Time
}

func NewMirrorService(tasks *repository.TaskRepository, mirror TaskMirror, clock calendar.Clock) *MirrorService {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &MirrorService{tasks: tasks, mirror: mirror, clock: clock}
}

// Sync pushes every task changed since the previous successful sync, less
// mirrorOverlap. The first call copies everything. Upserts are idempotent, so
// rows in the overlap are simply copied again.
func (s *MirrorService) Sync(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.clock.Now()
	since := s.lastSync
	if !since.IsZero() {
		since = since.Add(-mirrorOverlap)
	}
	changed, err := s.tasks.ListChangedSince(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(changed) == 0 {
		s.lastSync = started
		return 0, nil
	}
	n, err := s.mirror.UpsertTasks(ctx, changed)
	if err != nil {
		return n, err
	}
	s.lastSync = started
	return n, nil
}
