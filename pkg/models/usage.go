package models

import "time"

// Usage represents token counters from a generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageRecord tracks per-generation token usage.
type UsageRecord struct {
	ID               int64     `json:"id"`
	Model            string    `json:"model"`
	Channel          string    `json:"channel"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Cached           bool      `json:"cached"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates usage per model.
type UsageSummary struct {
	Model           string `json:"model"`
	RequestCount    int    `json:"request_count"`
	CachedCount     int    `json:"cached_count"`
	TotalPrompt     int    `json:"total_prompt"`
	TotalCompletion int    `json:"total_completion"`
	TotalTokens     int    `json:"total_tokens"`
}
