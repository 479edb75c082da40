package replicate

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/magictales/server/internal/domain"
)

const (
	// DefaultTimeout bounds the total wall-clock wait for a prediction.
	DefaultTimeout = 60 * time.Second
	// DefaultInterval is the fixed pause between polls. No backoff growth.
	DefaultInterval = 1200 * time.Millisecond
)

// Provider is the slice of the predictions API the poller depends on.
// *Client satisfies it; tests inject fakes.
type Provider interface {
	Submit(ctx context.Context, model string, input Input) (*domain.Prediction, error)
	Poll(ctx context.Context, id string) (*domain.Prediction, error)
}

// PollOptions tunes a single SubmitAndAwait call. Zero values take defaults.
type PollOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Poller turns the provider's asynchronous job lifecycle into one blocking
// call with a bounded wait. Clock and sleep are injected so tests run on a
// fake timeline.
type Poller struct {
	provider Provider
	logger   zerolog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPoller wires a poller around a provider.
func NewPoller(provider Provider, logger zerolog.Logger) *Poller {
	return &Poller{
		provider: provider,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// SubmitAndAwait submits a prediction and waits for a terminal snapshot,
// returning the single normalized artifact reference.
//
// Polls are strictly sequential: each one waits for the previous response
// before sleeping Interval and asking again, so at most one request is in
// flight per call. Failures are typed: *domain.JobFailedError for terminal
// provider failures, domain.ErrJobTimeout when the deadline elapses, and
// domain.ErrEmptyOutput / domain.ErrUnrecognizedOutput for unusable success
// payloads. The provider-side job is not canceled on timeout.
func (p *Poller) SubmitAndAwait(ctx context.Context, model string, input Input, opts PollOptions) (string, error) {
	opts = opts.withDefaults()
	deadline := p.now().Add(opts.Timeout)

	pred, err := p.provider.Submit(ctx, model, input)
	if err != nil {
		return "", err
	}

	for !pred.Status.Terminal() {
		if !p.now().Before(deadline) {
			p.logger.Warn().Str("prediction_id", pred.ID).Str("model", model).Msg("prediction polling deadline elapsed")
			return "", domain.ErrJobTimeout
		}
		if err := p.sleep(ctx, opts.Interval); err != nil {
			return "", err
		}
		next, err := p.provider.Poll(ctx, pred.ID)
		if err != nil {
			return "", err
		}
		if next.ID == "" {
			next.ID = pred.ID
		}
		pred = next
	}

	return p.resolve(pred)
}

func (p *Poller) resolve(pred *domain.Prediction) (string, error) {
	switch pred.Status {
	case domain.PredictionSucceeded:
		artifact, err := pred.FirstArtifact()
		if err != nil {
			p.logger.Error().Str("prediction_id", pred.ID).Err(err).Msg("prediction output unusable")
			return "", err
		}
		return artifact, nil
	case domain.PredictionFailed, domain.PredictionCanceled:
		return "", &domain.JobFailedError{Status: pred.Status, ProviderMessage: pred.Error}
	default:
		// Unreachable: callers only resolve terminal snapshots.
		return "", errors.New("replicate: prediction not terminal")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
