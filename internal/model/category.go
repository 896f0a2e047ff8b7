package model

// Uncategorized labels tasks stored without a category.
const Uncategorized = "Uncategorized"

// CategoryCount is the number of completed tasks in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
