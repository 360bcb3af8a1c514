// Package ratelimit wraps a provider.Provider with an adaptive,
// tokens-per-minute token bucket, so a single runtime process stays under a
// backend's rate limit without needing a fixed, hand-tuned ceiling. Grounded
// on goadesign-goa-ai/features/model/middleware/ratelimit.go's
// AdaptiveRateLimiter: an AIMD policy that backs off by half on
// provider.ErrRateLimited and probes upward by a fixed step on every
// success. The teacher's cluster-coordinated variant (a Pulse replicated
// map shared across processes) is dropped; multi-process coordination is
// out of scope here.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/flowctl/agentruntime/convo"
	"github.com/flowctl/agentruntime/provider"
	"github.com/flowctl/agentruntime/workflow"
)

// limiter is a single model's adaptive token bucket.
type limiter struct {
	mu sync.Mutex

	bucket *rate.Limiter

	currentTPM float64
	minTPM     float64
	maxTPM     float64

	recoveryRate float64
}

func newLimiter(initialTPM, maxTPM float64) *limiter {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	recoveryRate := initialTPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}
	return &limiter{
		bucket:       rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		currentTPM:   initialTPM,
		minTPM:       minTPM,
		maxTPM:       maxTPM,
		recoveryRate: recoveryRate,
	}
}

func (l *limiter) wait(ctx context.Context, tokens int) error {
	return l.bucket.WaitN(ctx, tokens)
}

func (l *limiter) observe(err error) {
	if err == nil {
		l.probe()
		return
	}
	if errors.Is(err, provider.ErrRateLimited) {
		l.backoff()
	}
}

func (l *limiter) backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newTPM := l.currentTPM * 0.5
	if newTPM < l.minTPM {
		newTPM = l.minTPM
	}
	if newTPM == l.currentTPM {
		return
	}
	l.currentTPM = newTPM
	l.bucket.SetLimit(rate.Limit(newTPM / 60.0))
	l.bucket.SetBurst(int(newTPM))
}

func (l *limiter) probe() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newTPM := l.currentTPM + l.recoveryRate
	if newTPM > l.maxTPM {
		newTPM = l.maxTPM
	}
	if newTPM == l.currentTPM {
		return
	}
	l.currentTPM = newTPM
	l.bucket.SetLimit(rate.Limit(newTPM / 60.0))
	l.bucket.SetBurst(int(newTPM))
}

func (l *limiter) tpm() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentTPM
}

// Provider wraps an underlying provider.Provider with a per-ModelId
// adaptive rate limiter. Each model gets its own independent token bucket,
// seeded lazily on first use, since different models on the same backend
// often carry different quota.
type Provider struct {
	next provider.Provider

	initialTPM float64
	maxTPM     float64

	mu       sync.Mutex
	limiters map[workflow.ModelId]*limiter
}

// New wraps next with an adaptive rate limiter. initialTPM and maxTPM are
// the starting and ceiling tokens-per-minute budgets applied to every model
// the wrapped Provider serves.
func New(next provider.Provider, initialTPM, maxTPM float64) *Provider {
	return &Provider{next: next, initialTPM: initialTPM, maxTPM: maxTPM, limiters: make(map[workflow.ModelId]*limiter)}
}

// Chat blocks until the model's bucket has capacity for the estimated
// request size, then delegates to the wrapped Provider and feeds the
// outcome back into the bucket's AIMD policy.
func (p *Provider) Chat(ctx context.Context, model workflow.ModelId, c convo.Context) (provider.Streamer, error) {
	lim := p.limiterFor(model)
	if err := lim.wait(ctx, estimateTokens(c)); err != nil {
		return nil, err
	}
	stream, err := p.next.Chat(ctx, model, c)
	lim.observe(err)
	return stream, err
}

// Models delegates to the wrapped Provider.
func (p *Provider) Models(ctx context.Context) ([]provider.Model, error) {
	return p.next.Models(ctx)
}

// Parameters delegates to the wrapped Provider.
func (p *Provider) Parameters(ctx context.Context, model workflow.ModelId) (provider.Parameters, error) {
	return p.next.Parameters(ctx, model)
}

func (p *Provider) limiterFor(model workflow.ModelId) *limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	lim, ok := p.limiters[model]
	if !ok {
		lim = newLimiter(p.initialTPM, p.maxTPM)
		p.limiters[model] = lim
	}
	return lim
}

// estimateTokens computes a cheap heuristic for the size of a chat request:
// character counts across message content and tool results, converted to
// tokens at a fixed ratio plus a fixed buffer for system prompts and
// provider framing.
func estimateTokens(c convo.Context) int {
	chars := 0
	for _, m := range c.Messages {
		if m.Content != nil {
			chars += len(m.Content.Content)
		}
		if m.ToolResult != nil {
			chars += len(m.ToolResult.Content)
		}
	}
	if chars <= 0 {
		return 500
	}
	tokens := chars / 3
	if tokens < 1 {
		tokens = 1
	}
	return tokens + 500
}
