package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"taskpulse/internal/calendar"
	"taskpulse/internal/model"
	"taskpulse/internal/repository"
)

const (
	streakWindowDays    = 365
	defaultCategoryDays = 30
)

// AnalyticsStore is the read side of the task store used for aggregation.
type AnalyticsStore interface {
	CompletedSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error)
	CategoryCounts(ctx context.Context, userID string, from, to time.Time) ([]model.CategoryCount, error)
}

// AnalyticsService turns completed tasks into time series, streaks and
// category rankings. It holds no per-request state.
type AnalyticsService struct {
	store AnalyticsStore
	clock calendar.Clock
}

func NewAnalyticsService(store AnalyticsStore, clock calendar.Clock) *AnalyticsService {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &AnalyticsService{store: store, clock: clock}
}

// CompletionSeries returns exactly length buckets ending with the current
// one, oldest first. Empty buckets have a zero count.
func (s *AnalyticsService) CompletionSeries(ctx context.Context, userID string, g calendar.Granularity, length int) ([]model.Bucket, error) {
	if !repository.ValidID(userID) {
		return nil, ErrInvalidUser
	}
	if length <= 0 {
		return nil, ErrInvalidLength
	}

	now := s.clock.Now()
	loc := now.Location()
	starts := calendar.Buckets(g, now, length)

	stamps, err := s.store.CompletedSince(ctx, userID, starts[0])
	if err != nil {
		return nil, s.fail("completion series", err)
	}

	counts := make(map[calendar.Key]int, length)
	for _, ts := range stamps {
		counts[calendar.BucketKey(g, ts.In(loc))]++
	}

	series := make([]model.Bucket, 0, length)
	for _, start := range starts {
		series = append(series, model.Bucket{
			Label: calendar.Label(g, start),
			Count: counts[calendar.BucketKey(g, start)],
		})
	}
	return series, nil
}

// DateRange is an inclusive time window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// CategoryBreakdown ranks categories by completed tasks within r. A range
// with a zero bound selects the trailing 30 days ending now; the range
// actually used is returned.
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID string, r DateRange) ([]model.CategoryCount, DateRange, error) {
	if !repository.ValidID(userID) {
		return nil, r, ErrInvalidUser
	}
	if r.From.IsZero() || r.To.IsZero() {
		r.To = s.clock.Now()
		r.From = r.To.AddDate(0, 0, -defaultCategoryDays)
	}
	if r.From.After(r.To) {
		return nil, r, ErrInvalidRange
	}

	rows, err := s.store.CategoryCounts(ctx, userID, r.From, r.To)
	if err != nil {
		return nil, r, s.fail("category breakdown", err)
	}

	breakdown := make([]model.CategoryCount, 0, len(rows))
	for _, row := range rows {
		if row.Category == "" {
			row.Category = model.Uncategorized
		}
		breakdown = append(breakdown, row)
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Count > breakdown[j].Count
	})
	return breakdown, r, nil
}

// StreakData walks the trailing 365 days backwards from today.
func (s *AnalyticsService) StreakData(ctx context.Context, userID string) (model.Streak, error) {
	if !repository.ValidID(userID) {
		return model.Streak{}, ErrInvalidUser
	}

	now := s.clock.Now()
	today := calendar.StartOfDay(now)
	oldest := today.AddDate(0, 0, -(streakWindowDays - 1))

	stamps, err := s.store.CompletedSince(ctx, userID, oldest)
	if err != nil {
		return model.Streak{}, s.fail("streaks", err)
	}

	active := make(map[string]struct{}, len(stamps))
	for _, ts := range stamps {
		active[calendar.DayLabel(ts.In(now.Location()))] = struct{}{}
	}

	streak := model.Streak{MissedDays: []string{}}
	running := true
	run := 0
	for i := 0; i < streakWindowDays; i++ {
		label := calendar.DayLabel(today.AddDate(0, 0, -i))
		if _, ok := active[label]; ok {
			run++
			if running {
				streak.CurrentStreak++
			}
			if run > streak.LongestStreak {
				streak.LongestStreak = run
			}
			continue
		}
		running = false
		run = 0
		streak.MissedDays = append(streak.MissedDays, label)
	}
	return streak, nil
}

// MonthlyTrend compares the first and last month of a months-long series.
func (s *AnalyticsService) MonthlyTrend(ctx context.Context, userID string, months int) (model.Trend, []model.Bucket, error) {
	series, err := s.CompletionSeries(ctx, userID, calendar.Month, months)
	if err != nil {
		return model.Trend{}, nil, err
	}
	return TrendOf(series), series, nil
}

// TrendOf derives the direction and best bucket of a series.
func TrendOf(series []model.Bucket) model.Trend {
	trend := model.Trend{Direction: model.TrendStable, BestMonth: BestBucket(series)}
	if len(series) < 2 {
		return trend
	}
	first, last := series[0].Count, series[len(series)-1].Count
	switch {
	case last > first:
		trend.Direction = model.TrendUpward
	case last < first:
		trend.Direction = model.TrendDownward
	}
	return trend
}

// BestBucket returns the first bucket holding the maximum count.
func BestBucket(series []model.Bucket) *model.Bucket {
	if len(series) == 0 {
		return nil
	}
	best := series[0]
	for _, b := range series[1:] {
		if b.Count > best.Count {
			best = b
		}
	}
	return &best
}

func (s *AnalyticsService) fail(op string, err error) error {
	if errors.Is(err, repository.ErrInvalidID) {
		return ErrInvalidUser
	}
	return &AggregationError{Op: op, Err: err}
}
