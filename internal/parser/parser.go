// Package parser turns free-text task input into structured task fields.
package parser

import (
	"context"
	"strings"
	"time"
)

// Result is the structured form of a free-text task.
type Result struct {
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"dueDate"`
	Priority     string     `json:"priority"`
	Category     string     `json:"category"`
	Keywords     []string   `json:"keywords"`
	Confidence   float64    `json:"confidence"`
	UrgencyScore float64    `json:"urgencyScore"`
}

// Parser extracts one task from raw user text.
type Parser interface {
	Parse(ctx context.Context, raw string) (Result, error)
}

var (
	priorities = []string{"low", "medium", "high"}
	categories = []string{"shopping", "work", "personal", "health", "finance", "general"}
)

const (
	defaultPriority = "medium"
	defaultCategory = "general"
	maxKeywords     = 5
)

// normalize applies defaults to whatever a parser produced.
func normalize(raw string, r Result) Result {
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		r.Description = strings.TrimSpace(raw)
	}
	r.Priority = strings.ToLower(strings.TrimSpace(r.Priority))
	if !contains(priorities, r.Priority) {
		r.Priority = defaultPriority
	}
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	if !contains(categories, r.Category) {
		r.Category = defaultCategory
	}
	r.Confidence = clamp01(r.Confidence)
	r.UrgencyScore = clamp01(r.UrgencyScore)

	keywords := make([]string, 0, len(r.Keywords))
	seen := make(map[string]bool)
	for _, k := range r.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keywords = append(keywords, k)
		if len(keywords) == maxKeywords {
			break
		}
	}
	r.Keywords = keywords
	return r
}

// fallback is what a failed parse degrades to.
func fallback(raw string) Result {
	return normalize(raw, Result{})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
