package model

// Bucket is one calendar interval of a completion series.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Streak summarises consecutive completion days.
type Streak struct {
	CurrentStreak int      `json:"currentStreak"`
	LongestStreak int      `json:"longestStreak"`
	MissedDays    []string `json:"missedDays"`
}

// Trend directions.
const (
	TrendUpward   = "upward"
	TrendDownward = "downward"
	TrendStable   = "stable"
)

// Trend describes how monthly completions moved across a window.
type Trend struct {
	Direction string  `json:"trendDirection"`
	BestMonth *Bucket `json:"bestMonth"`
}
