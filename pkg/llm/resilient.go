package llm

import (
	"context"
	"time"

	"github.com/xhad/shopsage/internal/types"
)

// RetryPolicy bounds a provider call: each attempt gets Timeout, and
// retryable failures are repeated up to MaxRetries times with exponential
// backoff starting at Backoff. The zero value makes exactly one attempt
// with no deadline beyond the caller's context.
type RetryPolicy struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	for attempt := 0; ; attempt++ {
		actx, cancel := ctx, context.CancelFunc(func() {})
		if p.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		out, err := fn(actx)
		cancel()
		if err == nil {
			return out, nil
		}

		ue, ok := AsUpstream(err)
		if !ok || !ue.Retryable() || attempt >= p.MaxRetries || ctx.Err() != nil {
			return out, err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return out, err
		case <-timer.C:
		}
		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
}

// ResilientEmbedder applies a RetryPolicy to another Embedder.
type ResilientEmbedder struct {
	next   types.Embedder
	policy RetryPolicy
}

func NewResilientEmbedder(next types.Embedder, policy RetryPolicy) *ResilientEmbedder {
	return &ResilientEmbedder{next: next, policy: policy}
}

func (r *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry(ctx, r.policy, func(ctx context.Context) ([]float32, error) {
		return r.next.Embed(ctx, text)
	})
}

func (r *ResilientEmbedder) ModelName() string { return r.next.ModelName() }

// ResilientGenerator applies a RetryPolicy to another Generator.
type ResilientGenerator struct {
	next   types.Generator
	policy RetryPolicy
}

func NewResilientGenerator(next types.Generator, policy RetryPolicy) *ResilientGenerator {
	return &ResilientGenerator{next: next, policy: policy}
}

func (r *ResilientGenerator) Chat(ctx context.Context, messages []types.ChatMessage) (string, error) {
	return retry(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.next.Chat(ctx, messages)
	})
}

func (r *ResilientGenerator) ModelName() string { return r.next.ModelName() }
