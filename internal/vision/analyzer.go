// Package vision extracts posts from screenshots with an external vision model.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/fn"
	"github.com/ibeckermayer/fbsweep/internal/types"
	"github.com/ibeckermayer/fbsweep/internal/vision/providers"
)

// Provider sends one batch of PNG images with a prompt and returns the raw reply text.
type Provider interface {
	Name() string
	Model() string
	Extract(ctx context.Context, images [][]byte, prompt string) (string, error)
}

// Exchange is one request/response pair, kept for debugging.
type Exchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Batch     int       `json:"batch"`
	Images    int       `json:"images"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// Recorder persists exchanges.
type Recorder interface {
	SaveVisionExchange(ex Exchange) error
}

// Analyzer batches screenshots through a provider
type Analyzer struct {
	provider    Provider
	batchSize   int
	concurrency int
	maxRetries  uint64
	log         *slog.Logger
	recorder    Recorder
	newBackOff  func() backoff.BackOff
}

// New creates an analyzer with the provider named in config.
func New(cfg config.VisionConfig, apiKey string, log *slog.Logger) (*Analyzer, error) {
	var provider Provider

	switch cfg.Provider {
	case providers.NameOpenAI:
		provider = providers.NewOpenAIProvider(apiKey, cfg.Model, cfg.BaseURL)
	case providers.NameAnthropic:
		provider = providers.NewAnthropicProvider(apiKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown vision provider: %s", cfg.Provider)
	}

	return NewWithProvider(provider, cfg, log), nil
}

// NewWithProvider creates an analyzer around an existing provider.
func NewWithProvider(provider Provider, cfg config.VisionConfig, log *slog.Logger) *Analyzer {
	a := &Analyzer{
		provider:    provider,
		batchSize:   max(cfg.BatchSize, 1),
		concurrency: max(cfg.Concurrency, 1),
		maxRetries:  uint64(max(cfg.MaxRetries, 0)),
		log:         log,
	}
	a.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 2 * time.Second
		b.MaxElapsedTime = 2 * time.Minute
		return b
	}
	return a
}

// WithRecorder records every exchange.
func (a *Analyzer) WithRecorder(r Recorder) *Analyzer {
	a.recorder = r
	return a
}

// ExtractBatches sends shots in batches and returns the posts of every
// batch in order. A batch whose call fails after retries, or whose reply is
// malformed, contributes nothing; the failure is logged with the raw reply.
func (a *Analyzer) ExtractBatches(ctx context.Context, shots [][]byte) []types.VisionPost {
	if len(shots) == 0 {
		return nil
	}

	batches := fn.Chunk(shots, a.batchSize)
	results := make([][]types.VisionPost, len(batches))

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for i, batch := range batches {
		g.Go(func() error {
			results[i] = a.extractBatch(ctx, i, batch)
			return nil
		})
	}
	_ = g.Wait()

	var all []types.VisionPost
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

func (a *Analyzer) extractBatch(ctx context.Context, idx int, batch [][]byte) []types.VisionPost {
	var raw string
	attempt := 0

	op := func() error {
		attempt++
		var err error
		raw, err = a.provider.Extract(ctx, batch, Prompt)
		return err
	}
	notify := func(err error, wait time.Duration) {
		a.log.Warn("vision call failed, retrying", "batch", idx, "attempt", attempt, "wait", wait, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(a.newBackOff(), a.maxRetries), ctx)
	err := backoff.RetryNotify(op, b, notify)
	a.record(idx, len(batch), raw, err)

	if err != nil {
		a.log.Error("vision batch failed", "batch", idx, "provider", a.provider.Name(), "attempts", attempt, "raw", raw, "error", err)
		return nil
	}

	posts, err := ParseResponse(raw)
	if err != nil {
		a.log.Error("vision response unusable, treating batch as empty", "batch", idx, "provider", a.provider.Name(), "raw", raw, "error", err)
		return nil
	}

	a.log.Info("vision batch extracted", "batch", idx, "images", len(batch), "posts", len(posts))
	return posts
}

func (a *Analyzer) record(idx, images int, raw string, callErr error) {
	if a.recorder == nil {
		return
	}
	ex := Exchange{
		Timestamp: time.Now(),
		Provider:  a.provider.Name(),
		Model:     a.provider.Model(),
		Batch:     idx,
		Images:    images,
		Prompt:    Prompt,
		Response:  raw,
	}
	if callErr != nil {
		ex.Error = callErr.Error()
	}
	if err := a.recorder.SaveVisionExchange(ex); err != nil {
		a.log.Warn("failed to record vision exchange", "batch", idx, "error", err)
	}
}
