package dispatch

import (
	"testing"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

func TestValidateRequest(t *testing.T) {
	valid := func(opts map[string]any) *models.GenerationRequest {
		return &models.GenerationRequest{Model: "llama3.2:3b", Prompt: "hello", Options: opts}
	}

	cases := []struct {
		name    string
		req     *models.GenerationRequest
		wantErr bool
	}{
		{"plain request", valid(nil), false},
		{"model without tag", &models.GenerationRequest{Model: "llama3.2", Prompt: "hi"}, false},
		{"model with registry path", &models.GenerationRequest{Model: "library/llama3.2:3b", Prompt: "hi"}, false},
		{"nil request", nil, true},
		{"empty model", &models.GenerationRequest{Prompt: "hi"}, true},
		{"whitespace prompt", &models.GenerationRequest{Model: "llama3.2:3b", Prompt: "\t\n"}, true},
		{"model with spaces", &models.GenerationRequest{Model: "lla ma", Prompt: "hi"}, true},
		{"model starting with dash", &models.GenerationRequest{Model: "-llama", Prompt: "hi"}, true},

		{"temperature in range", valid(map[string]any{"temperature": 0.7}), false},
		{"temperature at upper bound", valid(map[string]any{"temperature": 2.0}), false},
		{"temperature above range", valid(map[string]any{"temperature": 2.1}), true},
		{"temperature negative", valid(map[string]any{"temperature": -0.5}), true},
		{"top_p in range", valid(map[string]any{"top_p": 0.9}), false},
		{"top_p above one", valid(map[string]any{"top_p": 1.5}), true},
		{"top_k integer", valid(map[string]any{"top_k": 40}), false},
		{"top_k fractional", valid(map[string]any{"top_k": 40.5}), true},
		{"top_k string", valid(map[string]any{"top_k": "40"}), true},
		{"num_predict unbounded", valid(map[string]any{"num_predict": -1}), false},
		{"num_ctx zero", valid(map[string]any{"num_ctx": 0}), true},
		{"seed integer", valid(map[string]any{"seed": 42}), false},
		{"unknown option passes through", valid(map[string]any{"mirostat_tau": 5.0}), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateRequest(tc.req)
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestInvalidInputErrorMessage(t *testing.T) {
	err := &InvalidInputError{Field: "temperature", Reason: "value 3 out of range"}
	if got := err.Error(); got != "invalid temperature: value 3 out of range" {
		t.Errorf("unexpected message: %q", got)
	}
}
