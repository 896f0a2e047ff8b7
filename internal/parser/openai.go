package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"taskpulse/internal/calendar"
)

const (
	DefaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAI parses tasks through an OpenAI-compatible chat completion endpoint.
// Parse always returns a usable Result; a non-nil error means the result is
// the plain-text fallback.
type OpenAI struct {
	APIKey string
	URL    string
	Model  string
	Client *http.Client
	Clock  calendar.Clock
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type rawResult struct {
	Description  string   `json:"description"`
	DueDate      *string  `json:"dueDate"`
	Priority     string   `json:"priority"`
	Category     string   `json:"category"`
	Keywords     []string `json:"keywords"`
	Confidence   float64  `json:"confidence"`
	UrgencyScore float64  `json:"urgencyScore"`
}

func (p *OpenAI) Parse(ctx context.Context, raw string) (Result, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return fallback(raw), errors.New("openai api key not set")
	}

	content, err := p.complete(ctx, raw)
	if err != nil {
		log.Printf("[warn] ai parse failed: %v", err)
		return fallback(raw), err
	}

	var parsed rawResult
	if err := json.Unmarshal([]byte(stripFences(content)), &parsed); err != nil {
		log.Printf("[warn] ai returned invalid json: %q", content)
		return fallback(raw), fmt.Errorf("decode ai result: %w", err)
	}

	res := Result{
		Description:  parsed.Description,
		Priority:     parsed.Priority,
		Category:     parsed.Category,
		Keywords:     parsed.Keywords,
		Confidence:   parsed.Confidence,
		UrgencyScore: parsed.UrgencyScore,
	}
	if parsed.DueDate != nil && *parsed.DueDate != "" {
		if due, err := time.Parse(time.RFC3339, *parsed.DueDate); err == nil {
			res.DueDate = &due
		}
	}
	return normalize(raw, res), nil
}

func (p *OpenAI) complete(ctx context.Context, raw string) (string, error) {
	clock := p.Clock
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	body, err := json.Marshal(chatRequest{
		Model: firstNonEmpty(p.Model, DefaultOpenAIModel),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: taskPrompt(raw, clock.Now())},
		},
		Temperature: 0,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, firstNonEmpty(p.URL, DefaultOpenAIURL), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion api status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// stripFences drops a ```json fence some models wrap their answer in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
