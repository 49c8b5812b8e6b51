// Package dispatch is the single entry point for generation calls. Every
// request passes through the same explicit pipeline: validate, consult the
// cache, execute with bounded retries on the active channel, populate the
// cache.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/llamagate-ai/llamagate/pkg/channel"
	"github.com/llamagate-ai/llamagate/pkg/config"
	"github.com/llamagate-ai/llamagate/pkg/fingerprint"
	"github.com/llamagate-ai/llamagate/pkg/models"
)

// ErrChannelUnavailable is surfaced once bounded retries are exhausted. The
// caller may switch the active channel and retry manually.
var ErrChannelUnavailable = errors.New("channel unavailable after retries")

// ErrUnknownChannel is returned when selecting a channel that was never
// registered.
var ErrUnknownChannel = errors.New("unknown channel")

// Store is the result cache the dispatcher consults and populates. Cache
// failures are never load-bearing; they degrade to a warning.
type Store interface {
	Get(key string) (*models.GenerationResult, bool, error)
	Put(key string, result *models.GenerationResult, ttl time.Duration) error
}

// Recorder receives usage records for completed generations.
type Recorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// Dispatcher owns channel selection, validation, retry, and cache
// interaction. It is safe for concurrent use; each in-flight request runs
// against its own channel session.
type Dispatcher struct {
	cfg      *config.Config
	store    Store
	recorder Recorder
	log      *slog.Logger

	mu       sync.RWMutex
	channels map[string]channel.Channel
	active   channel.Channel

	flight singleflight.Group
}

// New creates a Dispatcher over the given channels. The active channel is
// taken from cfg.Channel. store and recorder may be nil to disable caching
// and usage tracking.
func New(cfg *config.Config, store Store, recorder Recorder, channels ...channel.Channel) (*Dispatcher, error) {
	if len(channels) == 0 {
		return nil, errors.New("dispatch: no channels registered")
	}

	byName := make(map[string]channel.Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}

	active, ok := byName[cfg.Channel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, cfg.Channel)
	}

	return &Dispatcher{
		cfg:      cfg,
		store:    store,
		recorder: recorder,
		log:      slog.Default().With("component", "dispatch"),
		channels: byName,
		active:   active,
	}, nil
}

// Active returns the name of the currently selected channel.
func (d *Dispatcher) Active() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active.Name()
}

// SwitchChannel selects a different execution channel. In-flight requests
// keep the channel they started on, and cache entries stay valid: they are
// keyed by semantic inputs, not by channel.
func (d *Dispatcher) SwitchChannel(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, ok := d.channels[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	if ch != d.active {
		d.log.Info("channel switched", "from", d.active.Name(), "to", name)
	}
	d.active = ch
	return nil
}

// ModelManager returns the administration surface of the active channel.
func (d *Dispatcher) ModelManager() (channel.ModelManager, error) {
	d.mu.RLock()
	ch := d.active
	d.mu.RUnlock()

	mgr, ok := ch.(channel.ModelManager)
	if !ok {
		return nil, fmt.Errorf("channel %s does not manage models", ch.Name())
	}
	return mgr, nil
}

func (d *Dispatcher) activeChannel() channel.Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// Generate runs a blocking generation. Cacheable requests execute at most
// once per fingerprint per TTL window; concurrent misses for the same
// fingerprint are coalesced into a single execution.
func (d *Dispatcher) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if !d.cacheable(req) {
		res, err := d.executeWithRetry(ctx, req)
		if err != nil {
			return nil, err
		}
		d.record(ctx, req, res)
		return res, nil
	}

	key, err := fingerprint.Key(req.Model, req.Prompt, req.Options)
	if err != nil {
		return nil, &InvalidInputError{Field: "options", Reason: err.Error()}
	}

	v, err, _ := d.flight.Do(key, func() (any, error) {
		if cached, ok := d.lookup(key); ok {
			return cached, nil
		}

		res, err := d.executeWithRetry(ctx, req)
		if err != nil {
			return nil, err
		}
		d.populate(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	res := v.(*models.GenerationResult)
	d.record(ctx, req, res)
	return res, nil
}

// GenerateStream starts a streaming generation on the active channel.
// Streams are never cached as a whole; retries only cover opening the
// stream, not chunks already delivered.
func (d *Dispatcher) GenerateStream(ctx context.Context, req *models.GenerationRequest) (channel.Stream, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var stream channel.Stream
	err := d.withRetry(ctx, func(ch channel.Channel) error {
		var err error
		stream, err = ch.Stream(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (d *Dispatcher) cacheable(req *models.GenerationRequest) bool {
	return d.store != nil && d.cfg.Cache.Enabled && !req.Stream
}

// lookup consults the store. Storage failures degrade to a miss with a
// warning; the request proceeds to the channel.
func (d *Dispatcher) lookup(key string) (*models.GenerationResult, bool) {
	res, ok, err := d.store.Get(key)
	if err != nil {
		d.log.Warn("cache read failed, treating as miss", "error", err)
		return nil, false
	}
	if !ok {
		d.log.Debug("cache miss", "fingerprint", key)
		return nil, false
	}
	d.log.Debug("cache hit", "fingerprint", key)
	res.Cached = true
	return res, true
}

// populate writes a fresh result. A failed write is reported as a warning;
// the generation still succeeded.
func (d *Dispatcher) populate(key string, res *models.GenerationResult) {
	if err := d.store.Put(key, res, d.cfg.Cache.TTL); err != nil {
		d.log.Warn("cache write failed, result not cached", "error", err)
	}
}

// executeWithRetry submits on the active channel, retrying transient
// failures with additive backoff: delay, delay+backoff, delay+2*backoff.
// Execution failures are surfaced immediately; retrying would repeat them.
func (d *Dispatcher) executeWithRetry(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	var res *models.GenerationResult
	err := d.withRetry(ctx, func(ch channel.Channel) error {
		attemptCtx := ctx
		if d.cfg.Timeout.Generation > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout.Generation)
			defer cancel()
		}
		var err error
		res, err = ch.Submit(attemptCtx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Dispatcher) withRetry(ctx context.Context, call func(channel.Channel) error) error {
	attempts := d.cfg.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := d.cfg.Retry.Delay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ch := d.activeChannel()
		err := call(ch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, channel.ErrUnavailable) {
			return err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		d.log.Warn("channel unavailable, retrying",
			"channel", ch.Name(), "attempt", attempt, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay += d.cfg.Retry.Backoff
	}
	return fmt.Errorf("%w (%d attempts): %v", ErrChannelUnavailable, attempts, lastErr)
}

// record reports usage to the recorder, if one is configured.
func (d *Dispatcher) record(ctx context.Context, req *models.GenerationRequest, res *models.GenerationResult) {
	if d.recorder == nil {
		return
	}
	rec := models.UsageRecord{
		Model:     req.Model,
		Channel:   res.Channel,
		Cached:    res.Cached,
		CreatedAt: time.Now().UTC(),
	}
	if res.Usage != nil {
		rec.PromptTokens = res.Usage.PromptTokens
		rec.CompletionTokens = res.Usage.CompletionTokens
		rec.TotalTokens = res.Usage.TotalTokens
	}
	if err := d.recorder.Record(ctx, rec); err != nil {
		d.log.Warn("usage record failed", "error", err)
	}
}
