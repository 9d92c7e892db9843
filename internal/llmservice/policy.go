package llmservice

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Policy adds retries and a per-attempt timeout around a Completer. Only
// rate limits, server errors and network failures are retried.
// The zero value performs exactly one attempt with no timeout.
type Policy struct {
	MaxRetries      uint64
	Timeout         time.Duration
	InitialInterval time.Duration
}

type policyCompleter struct {
	next   Completer
	policy Policy
}

// WithPolicy wraps next with p. A nil next stays nil so "no LLM" is preserved.
func WithPolicy(next Completer, p Policy) Completer {
	if next == nil {
		return nil
	}
	if p.MaxRetries == 0 && p.Timeout == 0 {
		return next
	}
	return &policyCompleter{next: next, policy: p}
}

func (c *policyCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var out string
	attempt := 0
	op := func() error {
		attempt++
		callCtx := ctx
		if c.policy.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
			defer cancel()
		}
		res, err := c.next.Complete(callCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			cause := Classify(err)
			if !cause.Transient() {
				return backoff.Permanent(err)
			}
			zerolog.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Str("cause", cause.String()).Msg("LLM call failed")
			return err
		}
		out = res
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	if c.policy.InitialInterval > 0 {
		eb.InitialInterval = c.policy.InitialInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, c.policy.MaxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", err
	}
	return out, nil
}
