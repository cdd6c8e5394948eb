package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds one provider's attempt chain.
type RetryPolicy struct {
	MaxAttempts    int           // total attempts, not retries
	BackoffBase    time.Duration // first delay; doubles per attempt
	BackoffCap     time.Duration // upper bound on a single delay
	AttemptTimeout time.Duration // per-attempt deadline
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = 1 * time.Second
	}
	if p.BackoffCap <= 0 {
		p.BackoffCap = 8 * time.Second
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = 30 * time.Second
	}
	return p
}

// ChainedProvider pairs a provider with its retry budget.
type ChainedProvider struct {
	Provider Provider
	Policy   RetryPolicy
}

// AttemptError records a single failed attempt for diagnostics.
type AttemptError struct {
	Provider string
	Attempt  int
	Err      error
}

func (a AttemptError) Error() string {
	return fmt.Sprintf("%s attempt %d: %v", a.Provider, a.Attempt, a.Err)
}

// ChainExhaustedError aggregates every attempt's failure across all provider
// chains. This, not the last error, is what propagates so no diagnostic is
// lost to masking.
type ChainExhaustedError struct {
	Attempts []AttemptError
}

func (e *ChainExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return "all providers exhausted: " + strings.Join(parts, "; ")
}

// ChainSummaries returns one line per provider chain, in chain order.
func (e *ChainExhaustedError) ChainSummaries() []string {
	order := []string{}
	byProvider := map[string][]string{}
	for _, a := range e.Attempts {
		if _, seen := byProvider[a.Provider]; !seen {
			order = append(order, a.Provider)
		}
		byProvider[a.Provider] = append(byProvider[a.Provider], a.Err.Error())
	}
	out := make([]string, 0, len(order))
	for _, p := range order {
		msgs := byProvider[p]
		out = append(out, fmt.Sprintf("%s failed after %d attempts: %s", p, len(msgs), msgs[len(msgs)-1]))
	}
	return out
}

// Gateway tries an ordered provider chain, each with its own retry budget,
// and stops at the first success. A failure here is terminal for the
// document; there is no retry above the gateway.
type Gateway struct {
	chain  []ChainedProvider
	logger *slog.Logger
}

func NewGateway(logger *slog.Logger, chain ...ChainedProvider) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	normalized := make([]ChainedProvider, len(chain))
	for i, cp := range chain {
		cp.Policy = cp.Policy.withDefaults()
		normalized[i] = cp
	}
	return &Gateway{chain: normalized, logger: logger}
}

// Extract submits the request to each provider in order until one succeeds.
// Every failed attempt is recorded; on total exhaustion the returned error is
// a *ChainExhaustedError. Cancellation is honored between attempts, never by
// tearing down an in-flight call early beyond its own deadline.
func (g *Gateway) Extract(ctx context.Context, req Request) (ProviderResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	g.logger.Info("gateway.extract.start",
		"req_id", rid,
		"providers", len(g.chain),
		"pages", len(req.Images),
		"prompt_len", len(req.Prompt),
	)

	var failures []AttemptError

	for _, cp := range g.chain {
		resp, attempts, err := g.tryProvider(ctx, cp, req, rid)
		if err == nil {
			resp.LatencyMS = time.Since(start).Milliseconds()
			resp.Success = true
			g.logger.Info("gateway.extract.ok",
				"req_id", rid,
				"provider", resp.Provider,
				"latency_ms", resp.LatencyMS,
				"text_len", len(resp.Text),
			)
			return resp, nil
		}
		failures = append(failures, attempts...)

		if ctx.Err() != nil {
			// do not start the next chain on a dead context
			break
		}
		g.logger.Warn("gateway.chain.exhausted",
			"req_id", rid,
			"provider", cp.Provider.Name(),
			"attempts", len(attempts),
			"error", err,
		)
	}

	exhausted := &ChainExhaustedError{Attempts: failures}
	g.logger.Error("gateway.extract.failed",
		"req_id", rid,
		"total_attempts", len(failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
		"error", exhausted,
	)
	return ProviderResponse{LatencyMS: time.Since(start).Milliseconds()}, exhausted
}

// tryProvider runs one provider's bounded attempt chain with exponential
// backoff. A per-attempt timeout counts against the budget like any other
// provider error.
func (g *Gateway) tryProvider(ctx context.Context, cp ChainedProvider, req Request, rid string) (ProviderResponse, []AttemptError, error) {
	name := cp.Provider.Name()
	policy := cp.Policy

	backoff := retry.WithCappedDuration(policy.BackoffCap,
		retry.WithMaxRetries(uint64(policy.MaxAttempts-1),
			retry.NewExponential(policy.BackoffBase)))

	var (
		attempt  int
		failures []AttemptError
		result   RawResponse
	)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		defer cancel()

		raw, callErr := cp.Provider.Call(attemptCtx, req)
		if callErr == nil && strings.TrimSpace(raw.Text) == "" {
			callErr = fmt.Errorf("empty response")
		}
		if callErr != nil {
			g.logger.Warn("gateway.attempt.failed",
				"req_id", rid,
				"provider", name,
				"attempt", attempt,
				"max_attempts", policy.MaxAttempts,
				"error", callErr,
			)
			failures = append(failures, AttemptError{Provider: name, Attempt: attempt, Err: callErr})
			return retry.RetryableError(callErr)
		}
		result = raw
		return nil
	})
	if err != nil {
		return ProviderResponse{}, failures, fmt.Errorf("%s exhausted: %w", name, err)
	}

	return ProviderResponse{
		Text:     result.Text,
		Provider: name,
		Usage:    result.Usage,
	}, failures, nil
}
