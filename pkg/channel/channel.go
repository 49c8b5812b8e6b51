// Package channel defines the contract every execution channel implements.
// The dispatcher holds a Channel reference and never branches on the
// concrete type; both implementations produce the same result shapes.
package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

// ErrUnavailable marks transient failures: the runtime could not be reached
// at all. The dispatcher retries these; everything else surfaces as-is.
var ErrUnavailable = errors.New("channel unavailable")

// ExecError means the channel was reached but the execution itself failed
// (model not found, process non-zero exit). Never retried automatically.
type ExecError struct {
	Channel string
	Output  string
	Err     error
}

func (e *ExecError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s execution failed: %s", e.Channel, e.Output)
	}
	return fmt.Sprintf("%s execution failed: %v", e.Channel, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Stream is one in-flight streaming execution. Recv blocks until the next
// chunk is available and returns io.EOF after the final chunk. Cancel
// releases the underlying session; no chunks are delivered after it
// returns.
type Stream interface {
	Recv() (*models.Chunk, error)
	Cancel() error
}

// Channel is a single execution path to the model runtime.
type Channel interface {
	// Name identifies the channel ("api" or "cli").
	Name() string
	// Submit runs a blocking single-shot generation.
	Submit(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
	// Stream starts a streaming generation. The returned Stream is finite
	// and not restartable; issue a new request to regenerate.
	Stream(ctx context.Context, req *models.GenerationRequest) (Stream, error)
}

// PullFunc receives progress updates during a model download.
type PullFunc func(models.PullProgress)

// ModelManager is the model administration surface both channels expose
// alongside generation.
type ModelManager interface {
	ListModels(ctx context.Context) ([]models.ModelSummary, error)
	ShowModel(ctx context.Context, model string) (*models.ModelInfo, error)
	PullModel(ctx context.Context, model string, progress PullFunc) error
	DeleteModel(ctx context.Context, model string) error
	ListRunning(ctx context.Context) ([]models.RunningModel, error)
	// LoadModel warms a model into runtime memory.
	LoadModel(ctx context.Context, model string) error
	// UnloadModel evicts a model from runtime memory.
	UnloadModel(ctx context.Context, model string) error
}
