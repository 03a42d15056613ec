// Package translate coordinates record translation: cache lookups, unit
// planning, provider jobs, and merge-back.
package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"prodtrans/internal/domain"
	"prodtrans/internal/infra"
	"prodtrans/internal/providers/intento"
)

// Provider is the slice of the gateway client the job runner depends on.
type Provider interface {
	Translate(ctx context.Context, req intento.TranslateRequest) (*intento.Submission, error)
	Operation(ctx context.Context, id string) (*intento.Operation, error)
}

var _ Provider = (*intento.Client)(nil)

// JobState tracks one translation job through its lifecycle. Jobs are
// transient: they live for a single Run call and are discarded once
// terminal.
type JobState string

const (
	JobSubmitted      JobState = "submitted"
	JobAwaitingResult JobState = "awaiting_result"
	JobCompleted      JobState = "completed"
	JobFailed         JobState = "failed"
	JobTimedOut       JobState = "timed_out"
)

// Request is one translation job submission.
type Request struct {
	Text     []string
	From     string
	To       string
	Sync     bool
	Provider string
	Routing  string
}

// JobResult is the normalized outcome of a completed job, identical for
// inline and polled completions.
type JobResult struct {
	Results  []string
	Provider intento.ProviderInfo
}

// RunnerConfig bounds the polling schedule.
type RunnerConfig struct {
	// Quiescence is the wait before the first poll of a deferred operation.
	Quiescence time.Duration
	// BaseDelay seeds the backoff: poll attempt n waits BaseDelay * 2^n.
	BaseDelay time.Duration
	// MaxAttempts bounds the number of polls before the job times out.
	MaxAttempts int
	// TokenCeiling downgrades sync submissions estimated at or above it.
	TokenCeiling int
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Quiescence <= 0 {
		c.Quiescence = 2 * time.Second
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.TokenCeiling <= 0 {
		c.TokenCeiling = 10000
	}
	return c
}

// Runner drives translation jobs to a terminal state, polling deferred
// operations with bounded exponential backoff.
type Runner struct {
	provider Provider
	cfg      RunnerConfig
	logger   *infra.Logger
}

// NewRunner constructs a runner. Zero config fields fall back to defaults.
func NewRunner(provider Provider, cfg RunnerConfig, logger *infra.Logger) *Runner {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Runner{provider: provider, cfg: cfg.withDefaults(), logger: logger}
}

// EstimateTokens approximates the token volume of the input texts.
func EstimateTokens(texts []string) int {
	total := 0
	for _, t := range texts {
		total += len(t)
	}
	return total / 4
}

// Run submits one job and returns its terminal result. Sync submissions
// estimated at or above the token ceiling are downgraded to async before
// the request is sent. Inline provider replies complete immediately;
// deferred replies are polled until done, rejected, or the attempt budget
// is exhausted.
func (r *Runner) Run(ctx context.Context, req Request) (*JobResult, error) {
	sync := req.Sync
	if est := EstimateTokens(req.Text); sync && est >= r.cfg.TokenCeiling {
		sync = false
		r.logger.Debug().
			Int("estimated_tokens", est).
			Int("ceiling", r.cfg.TokenCeiling).
			Msg("translate: sync request downgraded to async")
	}

	sub, err := r.provider.Translate(ctx, intento.TranslateRequest{
		Text:     req.Text,
		From:     req.From,
		To:       req.To,
		Async:    !sync,
		Provider: req.Provider,
		Routing:  req.Routing,
	})
	if err != nil {
		return nil, fmt.Errorf("translate: submit: %w", err)
	}
	if sub.Done {
		r.logger.Debug().
			Str("state", string(JobCompleted)).
			Str("provider", sub.Provider.Name).
			Msg("translate: completed inline")
		return &JobResult{Results: sub.Results, Provider: sub.Provider}, nil
	}
	return r.await(ctx, sub.OperationID)
}

// await polls one deferred operation. Provider rejections and malformed
// replies are terminal; request-side poll failures consume attempts and
// surface only once the budget is exhausted.
func (r *Runner) await(ctx context.Context, operationID string) (*JobResult, error) {
	r.logger.Debug().
		Str("state", string(JobAwaitingResult)).
		Str("operation_id", operationID).
		Msg("translate: awaiting result")
	if err := sleepCtx(ctx, r.cfg.Quiescence); err != nil {
		return nil, fmt.Errorf("translate: await %s: %w", operationID, err)
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if err := sleepCtx(ctx, r.cfg.BaseDelay*time.Duration(1<<attempt)); err != nil {
			return nil, fmt.Errorf("translate: await %s: %w", operationID, err)
		}
		op, err := r.provider.Operation(ctx, operationID)
		if err != nil {
			if errors.Is(err, domain.ErrProviderResponse) || errors.Is(err, domain.ErrMalformedResponse) {
				r.logger.Debug().
					Str("state", string(JobFailed)).
					Str("operation_id", operationID).
					Msg("translate: provider reported failure")
				return nil, fmt.Errorf("translate: poll: %w", err)
			}
			lastErr = err
			continue
		}
		if op.Done {
			r.logger.Debug().
				Str("state", string(JobCompleted)).
				Str("operation_id", operationID).
				Int("polls", attempt+1).
				Msg("translate: operation completed")
			return &JobResult{Results: op.Results, Provider: op.Provider}, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("translate: poll budget exhausted: %w", lastErr)
	}
	r.logger.Debug().
		Str("state", string(JobTimedOut)).
		Str("operation_id", operationID).
		Int("polls", r.cfg.MaxAttempts).
		Msg("translate: operation never finished")
	return nil, fmt.Errorf("translate: operation %s: %w", operationID, domain.ErrTranslationTimeout)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
