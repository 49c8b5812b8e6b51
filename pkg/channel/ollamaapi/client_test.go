package ollamaapi

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ollama/ollama/api"

	"github.com/llamagate-ai/llamagate/pkg/channel"
)

func TestWrapErr(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if wrapErr(nil) != nil {
			t.Error("nil should stay nil")
		}
	})

	t.Run("status error becomes ExecError", func(t *testing.T) {
		err := wrapErr(api.StatusError{
			StatusCode:   http.StatusNotFound,
			ErrorMessage: "model 'missing:1b' not found",
		})
		var execErr *channel.ExecError
		if !errors.As(err, &execErr) {
			t.Fatalf("expected ExecError, got %v", err)
		}
		if execErr.Output != "model 'missing:1b' not found" {
			t.Errorf("diagnostic output = %q", execErr.Output)
		}
		if errors.Is(err, channel.ErrUnavailable) {
			t.Error("status errors must not be retryable")
		}
	})

	t.Run("connection failure becomes ErrUnavailable", func(t *testing.T) {
		err := wrapErr(errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"))
		if !errors.Is(err, channel.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("context errors pass through", func(t *testing.T) {
		if err := wrapErr(context.Canceled); !errors.Is(err, context.Canceled) {
			t.Errorf("got %v", err)
		}
		if errors.Is(wrapErr(context.DeadlineExceeded), channel.ErrUnavailable) {
			t.Error("deadline must not look retryable as unavailability")
		}
	})
}

func TestToUsage(t *testing.T) {
	if u := toUsage(api.GenerateResponse{}); u != nil {
		t.Errorf("zero counters should yield nil usage, got %+v", u)
	}

	u := toUsage(api.GenerateResponse{
		Metrics: api.Metrics{PromptEvalCount: 12, EvalCount: 30},
	})
	if u == nil || u.PromptTokens != 12 || u.CompletionTokens != 30 || u.TotalTokens != 42 {
		t.Errorf("unexpected usage: %+v", u)
	}
}

func TestToResultShape(t *testing.T) {
	res := toResult(api.GenerateResponse{
		Model:    "demo:1b",
		Response: "four",
		Done:     true,
	})
	if res.Channel != Name {
		t.Errorf("channel = %q, want %q", res.Channel, Name)
	}
	if res.CreatedAt.IsZero() {
		t.Error("missing runtime timestamp should be filled in")
	}
}
