package models

import "time"

// GenerationRequest describes a single generation call against the runtime.
// Treat a constructed request as immutable; the dispatcher and channels
// never modify it.
type GenerationRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Options map[string]any `json:"options,omitempty"`
	Stream  bool           `json:"stream,omitempty"`
}

// GenerationResult is the complete output of one successful execution.
// Results are shared read-only between the cache and callers.
type GenerationResult struct {
	Model     string    `json:"model"`
	Response  string    `json:"response"`
	Done      bool      `json:"done"`
	Usage     *Usage    `json:"usage,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is one partial result from a streaming generation. Both channels
// produce the same chunk shape so consumers are channel-agnostic.
type Chunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Usage    *Usage `json:"usage,omitempty"`
}
