package parser

import (
	"fmt"
	"strings"
	"time"
)

const systemPrompt = "You are an AI that extracts structured task information in JSON."

// taskPrompt builds the user message for a single task extraction.
func taskPrompt(input string, now time.Time) string {
	return fmt.Sprintf(`You are an AI task parser for a productivity app.
Extract exactly one primary actionable task from the input and return it as a STRICT JSON object.

Rules:
1. Output ONLY a valid JSON object. No extra text, no markdown.
2. Keys: description, dueDate, priority, category, keywords, confidence, urgencyScore.
3. "description": short (max ~100 chars) summary. Drop filler words like "please" or "could you".
4. "dueDate": ISO 8601 UTC (YYYY-MM-DDTHH:mm:ssZ) or null when no date is given or implied.
   Resolve relative dates ("tomorrow", "next Monday", "in 3 days") against today: %s.
5. "priority": one of ["low", "medium", "high"]. "urgent"/"ASAP" means high, "whenever" means low, otherwise medium.
6. "category": one of ["shopping", "work", "personal", "health", "finance", "general"]. Default "general".
7. "keywords": 3 to 5 lowercase keywords.
8. "confidence" and "urgencyScore": numbers between 0 and 1.

Input:
%q

Example output:
{"description":"Submit project report","dueDate":"2025-08-12T17:00:00Z","priority":"high","category":"work","keywords":["report","project","submit"],"confidence":0.9,"urgencyScore":0.8}`,
		now.Format("Monday, 2006-01-02"), strings.TrimSpace(input))
}
