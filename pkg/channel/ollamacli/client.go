// Package ollamacli implements the subprocess execution channel. It invokes
// the runtime's own executable and parses its line-oriented output into the
// same result shapes the API channel produces.
package ollamacli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/llamagate-ai/llamagate/pkg/channel"
	"github.com/llamagate-ai/llamagate/pkg/models"
)

// Name is the channel identifier used for selection and logging.
const Name = "cli"

// DefaultBinary is the executable invoked when none is configured.
const DefaultBinary = "ollama"

// Client is the subprocess channel. Each call spawns its own process; the
// process is the ChannelSession and is reaped on completion, error, or
// cancellation.
type Client struct {
	bin string
}

// New creates a CLI channel for the given executable. Pass "" for the
// default binary name resolved via PATH.
func New(bin string) *Client {
	if bin == "" {
		bin = DefaultBinary
	}
	return &Client{bin: bin}
}

// Name implements channel.Channel.
func (c *Client) Name() string { return Name }

// run executes one subcommand to completion and returns its stdout.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", c.wrapRunErr(err, stderr.String())
	}
	return stdout.String(), nil
}

// wrapRunErr sorts process failures into the channel taxonomy: a missing
// executable is transient (the caller may install it or switch channel), a
// non-zero exit is an execution failure carrying the captured diagnostics.
func (c *Client) wrapRunErr(err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s not found in PATH", channel.ErrUnavailable, c.bin)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &channel.ExecError{
			Channel: Name,
			Output:  stderr,
			Err:     err,
		}
	}
	return fmt.Errorf("%w: %v", channel.ErrUnavailable, err)
}

// Submit implements channel.Channel via `run <model> <prompt>`.
// Generation options are not representable on the CLI surface and are
// ignored; the fingerprint still includes them so cached results stay
// channel-agnostic.
func (c *Client) Submit(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	out, err := c.run(ctx, "run", req.Model, req.Prompt)
	if err != nil {
		return nil, err
	}
	return &models.GenerationResult{
		Model:     req.Model,
		Response:  strings.TrimSpace(out),
		Done:      true,
		Channel:   Name,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// cliStream wraps a running generation subprocess.
type cliStream struct {
	cmd    *exec.Cmd
	items  chan streamItem
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool
}

type streamItem struct {
	chunk *models.Chunk
	err   error
}

func (s *cliStream) Recv() (*models.Chunk, error) {
	s.mu.Lock()
	cancelled := s.cancelled
	s.mu.Unlock()
	if cancelled {
		return nil, context.Canceled
	}

	item, ok := <-s.items
	if !ok {
		s.mu.Lock()
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

// Cancel kills the subprocess. No chunks are delivered after it returns.
func (s *cliStream) Cancel() error {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
	return nil
}

// Stream implements channel.Channel. Output is framed line by line; partial
// lines are buffered across reads so a chunk split mid-line is emitted
// whole once completed.
func (c *Client) Stream(ctx context.Context, req *models.GenerationRequest) (channel.Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(streamCtx, c.bin, "run", req.Model, req.Prompt)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", channel.ErrUnavailable, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, c.wrapRunErr(err, "")
	}

	s := &cliStream{
		cmd:    cmd,
		items:  make(chan streamItem, 8),
		cancel: cancel,
	}

	go func() {
		defer close(s.items)

		var parser LineParser
		buf := make([]byte, 4096)
		for {
			n, readErr := stdout.Read(buf)
			if n > 0 {
				for _, line := range parser.Feed(buf[:n]) {
					s.items <- streamItem{chunk: &models.Chunk{Response: line + "\n"}}
				}
			}
			if readErr != nil {
				break
			}
		}
		if tail, ok := parser.Flush(); ok {
			s.items <- streamItem{chunk: &models.Chunk{Response: tail}}
		}

		err := cmd.Wait()
		if streamCtx.Err() != nil {
			return
		}
		if err != nil {
			s.items <- streamItem{err: c.wrapRunErr(err, stderr.String())}
			return
		}
		s.items <- streamItem{chunk: &models.Chunk{Done: true}}
	}()

	return s, nil
}

// ListModels implements channel.ModelManager via `list`.
func (c *Client) ListModels(ctx context.Context) ([]models.ModelSummary, error) {
	out, err := c.run(ctx, "list")
	if err != nil {
		return nil, err
	}
	return parseListOutput(out), nil
}

// ShowModel implements channel.ModelManager via `show <model>`.
func (c *Client) ShowModel(ctx context.Context, model string) (*models.ModelInfo, error) {
	out, err := c.run(ctx, "show", model)
	if err != nil {
		return nil, err
	}
	return parseShowOutput(model, out), nil
}

// PullModel implements channel.ModelManager via `pull <model>`, parsing the
// progress lines the CLI redraws during download.
func (c *Client) PullModel(ctx context.Context, model string, progress channel.PullFunc) error {
	cmd := exec.CommandContext(ctx, c.bin, "pull", model)

	// Progress goes to stderr, errors too; read both through one parser.
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", channel.ErrUnavailable, err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return c.wrapRunErr(err, "")
	}

	var parser LineParser
	var captured strings.Builder
	buf := make([]byte, 4096)
	for {
		n, readErr := pipe.Read(buf)
		if n > 0 {
			for _, line := range parser.Feed(buf[:n]) {
				captured.WriteString(line)
				captured.WriteByte('\n')
				if progress != nil {
					if p := parsePullProgress(line); p != nil {
						progress(*p)
					}
				}
			}
		}
		if readErr != nil {
			break
		}
	}

	if err := cmd.Wait(); err != nil {
		return c.wrapRunErr(err, captured.String())
	}
	if progress != nil {
		progress(models.PullProgress{Status: "success", Percent: 100})
	}
	return nil
}

// DeleteModel implements channel.ModelManager via `rm <model>`.
func (c *Client) DeleteModel(ctx context.Context, model string) error {
	_, err := c.run(ctx, "rm", model)
	return err
}

// ListRunning implements channel.ModelManager via `ps`.
func (c *Client) ListRunning(ctx context.Context) ([]models.RunningModel, error) {
	out, err := c.run(ctx, "ps")
	if err != nil {
		return nil, err
	}
	return parsePSOutput(out), nil
}

// LoadModel warms a model by running it with an empty prompt.
func (c *Client) LoadModel(ctx context.Context, model string) error {
	_, err := c.run(ctx, "run", model, "")
	return err
}

// UnloadModel implements channel.ModelManager via `stop <model>`.
func (c *Client) UnloadModel(ctx context.Context, model string) error {
	_, err := c.run(ctx, "stop", model)
	return err
}
