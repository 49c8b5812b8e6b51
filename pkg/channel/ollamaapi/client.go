// Package ollamaapi implements the API execution channel on top of the
// official Ollama HTTP client.
package ollamaapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/llamagate-ai/llamagate/pkg/channel"
	"github.com/llamagate-ai/llamagate/pkg/format"
	"github.com/llamagate-ai/llamagate/pkg/models"
)

// Name is the channel identifier used for selection and logging.
const Name = "api"

// Client is the HTTP API channel. It holds a single underlying Ollama
// client; each call runs against its own session and multiple calls may be
// in flight concurrently.
type Client struct {
	api       *api.Client
	keepAlive time.Duration
}

// New creates an API channel against the given base URL.
func New(base *url.URL, keepAlive time.Duration) *Client {
	return &Client{
		api:       api.NewClient(base, http.DefaultClient),
		keepAlive: keepAlive,
	}
}

// Name implements channel.Channel.
func (c *Client) Name() string { return Name }

// Heartbeat reports whether the runtime API answers at all.
func (c *Client) Heartbeat(ctx context.Context) error {
	if err := c.api.Heartbeat(ctx); err != nil {
		return fmt.Errorf("%w: %v", channel.ErrUnavailable, err)
	}
	return nil
}

// Version returns the runtime's reported version.
func (c *Client) Version(ctx context.Context) (string, error) {
	v, err := c.api.Version(ctx)
	if err != nil {
		return "", wrapErr(err)
	}
	return v, nil
}

// Submit implements channel.Channel.
func (c *Client) Submit(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	stream := false
	var result *models.GenerationResult

	err := c.api.Generate(ctx, &api.GenerateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Stream:  &stream,
		Options: req.Options,
	}, func(resp api.GenerateResponse) error {
		result = toResult(resp)
		return nil
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	if result == nil {
		return nil, &channel.ExecError{Channel: Name, Err: errors.New("empty generate response")}
	}
	return result, nil
}

type streamItem struct {
	chunk *models.Chunk
	err   error
}

// apiStream adapts the client's callback-style streaming to the pull-style
// Stream contract.
type apiStream struct {
	items  chan streamItem
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool
	done      bool
}

func (s *apiStream) Recv() (*models.Chunk, error) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return nil, context.Canceled
	}
	if s.done {
		s.mu.Unlock()
		return nil, io.EOF
	}
	s.mu.Unlock()

	item, ok := <-s.items
	if !ok {
		s.mu.Lock()
		s.done = true
		cancelled := s.cancelled
		s.mu.Unlock()
		if cancelled {
			return nil, context.Canceled
		}
		return nil, io.EOF
	}
	if item.err != nil {
		return nil, item.err
	}
	return item.chunk, nil
}

func (s *apiStream) Cancel() error {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
	return nil
}

// Stream implements channel.Channel. Chunks are forwarded as the runtime
// produces them; the final chunk carries token counters.
func (c *Client) Stream(ctx context.Context, req *models.GenerationRequest) (channel.Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	stream := true

	s := &apiStream{
		items:  make(chan streamItem, 8),
		cancel: cancel,
	}

	go func() {
		defer close(s.items)
		err := c.api.Generate(streamCtx, &api.GenerateRequest{
			Model:   req.Model,
			Prompt:  req.Prompt,
			Stream:  &stream,
			Options: req.Options,
		}, func(resp api.GenerateResponse) error {
			chunk := &models.Chunk{
				Response: resp.Response,
				Done:     resp.Done,
			}
			if resp.Done {
				chunk.Usage = toUsage(resp)
			}
			select {
			case s.items <- streamItem{chunk: chunk}:
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		})
		if err != nil && streamCtx.Err() == nil {
			s.items <- streamItem{err: wrapErr(err)}
		}
	}()

	return s, nil
}

// ListModels implements channel.ModelManager.
func (c *Client) ListModels(ctx context.Context) ([]models.ModelSummary, error) {
	resp, err := c.api.List(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	summaries := make([]models.ModelSummary, 0, len(resp.Models))
	for _, m := range resp.Models {
		id := m.Digest
		if len(id) > 12 {
			id = id[:12]
		}
		summaries = append(summaries, models.ModelSummary{
			Name:     m.Name,
			ID:       id,
			Size:     format.Size(m.Size),
			Modified: format.TimeAgo(m.ModifiedAt),
		})
	}
	return summaries, nil
}

// ShowModel implements channel.ModelManager.
func (c *Client) ShowModel(ctx context.Context, model string) (*models.ModelInfo, error) {
	resp, err := c.api.Show(ctx, &api.ShowRequest{Model: model})
	if err != nil {
		return nil, wrapErr(err)
	}

	return &models.ModelInfo{
		Name:         model,
		Architecture: resp.Details.Family,
		Parameters:   resp.Details.ParameterSize,
		Quantization: resp.Details.QuantizationLevel,
		Format:       resp.Details.Format,
		Template:     resp.Template,
		System:       resp.System,
		License:      resp.License,
	}, nil
}

// PullModel implements channel.ModelManager. Progress updates are forwarded
// as the registry reports them.
func (c *Client) PullModel(ctx context.Context, model string, progress channel.PullFunc) error {
	err := c.api.Pull(ctx, &api.PullRequest{Model: model}, func(resp api.ProgressResponse) error {
		if progress == nil {
			return nil
		}
		p := models.PullProgress{
			Status:    resp.Status,
			Digest:    resp.Digest,
			Total:     resp.Total,
			Completed: resp.Completed,
		}
		if resp.Total > 0 {
			p.Percent = float64(resp.Completed) / float64(resp.Total) * 100
		}
		if resp.Status == "success" {
			p.Percent = 100
		}
		progress(p)
		return nil
	})
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

// DeleteModel implements channel.ModelManager.
func (c *Client) DeleteModel(ctx context.Context, model string) error {
	if err := c.api.Delete(ctx, &api.DeleteRequest{Model: model}); err != nil {
		return wrapErr(err)
	}
	return nil
}

// ListRunning implements channel.ModelManager.
func (c *Client) ListRunning(ctx context.Context) ([]models.RunningModel, error) {
	resp, err := c.api.ListRunning(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}

	running := make([]models.RunningModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		running = append(running, models.RunningModel{
			Name:      m.Name,
			Size:      format.Size(m.Size),
			Processor: format.Processor(m.Size, m.SizeVRAM),
			Until:     format.Until(m.ExpiresAt),
		})
	}
	return running, nil
}

// LoadModel warms a model by sending an empty prompt with the configured
// keep-alive.
func (c *Client) LoadModel(ctx context.Context, model string) error {
	stream := false
	err := c.api.Generate(ctx, &api.GenerateRequest{
		Model:     model,
		Stream:    &stream,
		KeepAlive: &api.Duration{Duration: c.keepAlive},
	}, func(api.GenerateResponse) error { return nil })
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

// UnloadModel evicts a model by setting keep-alive to zero.
func (c *Client) UnloadModel(ctx context.Context, model string) error {
	stream := false
	err := c.api.Generate(ctx, &api.GenerateRequest{
		Model:     model,
		Stream:    &stream,
		KeepAlive: &api.Duration{Duration: 0},
	}, func(api.GenerateResponse) error { return nil })
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func toResult(resp api.GenerateResponse) *models.GenerationResult {
	created := resp.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &models.GenerationResult{
		Model:     resp.Model,
		Response:  resp.Response,
		Done:      resp.Done,
		Usage:     toUsage(resp),
		Channel:   Name,
		CreatedAt: created,
	}
}

func toUsage(resp api.GenerateResponse) *models.Usage {
	if resp.PromptEvalCount == 0 && resp.EvalCount == 0 {
		return nil
	}
	return &models.Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
}

// wrapErr sorts client errors into the channel taxonomy: HTTP status errors
// mean the runtime was reached and refused (ExecError); everything else is
// a connection-level failure (ErrUnavailable).
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return &channel.ExecError{
			Channel: Name,
			Output:  statusErr.ErrorMessage,
			Err:     err,
		}
	}
	return fmt.Errorf("%w: %v", channel.ErrUnavailable, err)
}
