package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskpulse/internal/calendar"
	"taskpulse/internal/model"
	"taskpulse/internal/service"
)

const (
	defaultWeeks  = 8
	maxWeeks      = 260
	defaultMonths = 6
	maxMonths     = 120
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	clock     calendar.Clock
	// strict rejects unknown granularities instead of falling back to week.
	strict bool
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, clock calendar.Clock, strict bool) *AnalyticsHandler {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &AnalyticsHandler{analytics: analytics, clock: clock, strict: strict}
}

type completionInsights struct {
	TotalCompleted   int           `json:"totalCompleted"`
	AveragePerPeriod float64       `json:"averagePerPeriod"`
	BestPeriod       *model.Bucket `json:"bestPeriod"`
}

func (h *AnalyticsHandler) CompletionStats(c *gin.Context) {
	weeks, err := countParam(c, "weeks", defaultWeeks, maxWeeks)
	if err != nil {
		_ = c.Error(err)
		return
	}

	raw := c.Query("granularity")
	g, ok := calendar.ParseGranularity(raw)
	if !ok {
		if h.strict && raw != "" {
			_ = c.Error(badRequest("granularity must be one of day, week, month"))
			return
		}
		g = calendar.Week
	}

	length := weeks
	if g == calendar.Day {
		length = weeks * 7
	}

	series, err := h.analytics.CompletionSeries(c.Request.Context(), currentUser(c).ID, g, length)
	if err != nil {
		_ = c.Error(err)
		return
	}

	total := 0
	for _, b := range series {
		total += b.Count
	}
	insights := completionInsights{TotalCompleted: total, BestPeriod: service.BestBucket(series)}
	if len(series) > 0 {
		insights.AveragePerPeriod = math.Round(float64(total)/float64(len(series))*100) / 100
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"period":   gin.H{"type": g, "length": weeks},
		"insights": insights,
		"data":     series,
	})
}

func (h *AnalyticsHandler) CategoryStats(c *gin.Context) {
	loc := h.clock.Now().Location()
	var from, to time.Time
	var err error
	if raw := c.Query("dateFrom"); raw != "" {
		if from, err = parseDate(raw, loc, false); err != nil {
			_ = c.Error(badRequest("dateFrom must be RFC 3339 or YYYY-MM-DD"))
			return
		}
	}
	if raw := c.Query("dateTo"); raw != "" {
		if to, err = parseDate(raw, loc, true); err != nil {
			_ = c.Error(badRequest("dateTo must be RFC 3339 or YYYY-MM-DD"))
			return
		}
	}
	// A lone bound falls back to the default window.
	var r service.DateRange
	if !from.IsZero() && !to.IsZero() {
		r = service.DateRange{From: from, To: to}
	}

	breakdown, used, err := h.analytics.CategoryBreakdown(c.Request.Context(), currentUser(c).ID, r)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var top *model.CategoryCount
	if len(breakdown) > 0 {
		top = &breakdown[0]
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"dateRange": gin.H{
			"from": used.From.Format(time.RFC3339),
			"to":   used.To.Format(time.RFC3339),
		},
		"insights": gin.H{"topCategory": top, "totalCategories": len(breakdown)},
		"data":     breakdown,
	})
}

func (h *AnalyticsHandler) Streaks(c *gin.Context) {
	streak, err := h.analytics.StreakData(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"currentStreak": streak.CurrentStreak,
		"longestStreak": streak.LongestStreak,
		"missedDays":    streak.MissedDays,
	})
}

func (h *AnalyticsHandler) ProductivityTrends(c *gin.Context) {
	months, err := countParam(c, "months", defaultMonths, maxMonths)
	if err != nil {
		_ = c.Error(err)
		return
	}
	trend, series, err := h.analytics.MonthlyTrend(c.Request.Context(), currentUser(c).ID, months)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"monthsAnalyzed": months,
		"insights":       trend,
		"data":           series,
	})
}

// countParam reads a positive count. Missing, unparseable or non-positive
// values fall back to def; values above max are rejected.
func countParam(c *gin.Context, name string, def, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil || n <= 0 {
		return def, nil
	}
	if n > max {
		return 0, badRequest("%s must be at most %d", name, max)
	}
	return n, nil
}

// parseDate accepts RFC 3339 or a calendar date in loc. A calendar date used
// as an upper bound covers the whole day.
func parseDate(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
