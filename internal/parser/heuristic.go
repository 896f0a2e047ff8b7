package parser

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"taskpulse/internal/calendar"
)

// Heuristic parses text with keyword rules. It is deterministic given its
// clock and needs no network.
type Heuristic struct {
	Clock calendar.Clock
}

var (
	urgentWords = []string{"urgent", "asap", "immediately", "critical", "today"}
	relaxWords  = []string{"whenever", "someday", "eventually", "low priority", "no rush"}

	categoryWords = map[string][]string{
		"shopping": {"buy", "shop", "groceries", "order", "store", "milk"},
		"work":     {"report", "meeting", "client", "deploy", "email", "project", "review"},
		"health":   {"doctor", "gym", "run", "dentist", "medicine", "workout"},
		"finance":  {"pay", "bill", "invoice", "tax", "bank", "budget", "rent"},
		"personal": {"call", "mom", "dad", "birthday", "family", "friend"},
	}

	fillerPattern = regexp.MustCompile(`(?i)\b(please|could you|can you|remind me to|i need to|don't forget to)\b\s*`)
	wordPattern   = regexp.MustCompile(`[a-zA-Z][a-zA-Z'-]{2,}`)
	inDaysPattern = regexp.MustCompile(`(?i)\bin (\d{1,2}) days?\b`)

	stopWords = map[string]bool{
		"the": true, "and": true, "for": true, "with": true, "tomorrow": true, "today": true,
		"next": true, "this": true, "that": true, "from": true, "have": true, "days": true,
		"urgent": true, "asap": true, "week": true, "monday": true, "tuesday": true,
		"wednesday": true, "thursday": true, "friday": true, "saturday": true, "sunday": true,
	}

	weekdays = []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
)

func (h Heuristic) Parse(_ context.Context, raw string) (Result, error) {
	clock := h.Clock
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	now := clock.Now()
	lower := strings.ToLower(raw)

	res := Result{
		Description: strings.TrimSpace(fillerPattern.ReplaceAllString(raw, "")),
		Priority:    defaultPriority,
		Category:    defaultCategory,
		Confidence:  0.4,
	}

	switch {
	case containsAny(lower, urgentWords):
		res.Priority = "high"
		res.UrgencyScore = 0.9
	case containsAny(lower, relaxWords):
		res.Priority = "low"
		res.UrgencyScore = 0.1
	default:
		res.UrgencyScore = 0.5
	}

	best := 0
	for _, name := range sortedKeys(categoryWords) {
		hits := 0
		for _, w := range categoryWords[name] {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		if hits > best {
			best = hits
			res.Category = name
		}
	}
	if best > 0 {
		res.Confidence = 0.6
	}

	res.DueDate = dueDate(lower, now)
	res.Keywords = keywords(lower)

	return normalize(raw, res), nil
}

func dueDate(lower string, now time.Time) *time.Time {
	day := calendar.StartOfDay(now)
	endOfDay := func(d time.Time) *time.Time {
		t := d.Add(17 * time.Hour)
		return &t
	}

	switch {
	case strings.Contains(lower, "tomorrow"):
		return endOfDay(day.AddDate(0, 0, 1))
	case strings.Contains(lower, "today") || strings.Contains(lower, "tonight"):
		return endOfDay(day)
	case strings.Contains(lower, "next week"):
		return endOfDay(calendar.BucketStart(calendar.Week, day).AddDate(0, 0, 7))
	}
	if m := inDaysPattern.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return endOfDay(day.AddDate(0, 0, n))
	}
	for _, wd := range weekdays {
		if strings.Contains(lower, strings.ToLower(wd.String())) {
			ahead := (int(wd) - int(day.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return endOfDay(day.AddDate(0, 0, ahead))
		}
	}
	return nil
}

func keywords(lower string) []string {
	var out []string
	for _, w := range wordPattern.FindAllString(lower, -1) {
		if stopWords[w] || fillerPattern.MatchString(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
