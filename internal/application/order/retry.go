package order

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/integration"
	"github.com/shadiyar7/repair-platform-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Call outcomes reported to metrics
const (
	outcomeOK          = "ok"
	outcomeUnavailable = "unavailable"
	outcomeRejected    = "rejected"
)

// RetryPolicy bounds retries of transient integration failures
type RetryPolicy struct {
	Attempts        int // total attempts, including the first
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = defaultRetryInitial
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = defaultRetryMaxWait
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts-1)), ctx)
}

// call runs one external step. Each attempt gets its own timeout and runs
// detached from the caller's cancellation, so an already dispatched request
// is allowed to finish. Only Unavailable failures are retried; a Rejected
// failure returns at once.
func (s *Service) call(ctx context.Context, system integration.System, step string, fn func(context.Context) error) (err error) {
	ctx, span := telemetry.StartClientSpan(ctx, string(system), step)
	defer telemetry.End(span, &err)

	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(detached(ctx), s.settings.CallTimeout)
		defer cancel()

		callErr := fn(callCtx)
		if callErr == nil {
			s.metrics.RecordIntegrationCall(ctx, string(system), step, outcomeOK)
			return nil
		}
		// Adapters classify their own failures; anything unclassified came
		// from below the adapter and counts as transport trouble.
		var ie *integration.Error
		if !errors.As(callErr, &ie) {
			ie = integration.Unavailable(system, step, callErr)
		}
		if !ie.Retryable() {
			s.metrics.RecordIntegrationCall(ctx, string(system), step, outcomeRejected)
			return backoff.Permanent(ie)
		}
		s.metrics.RecordIntegrationCall(ctx, string(system), step, outcomeUnavailable)
		return ie
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Integration call failed, retrying",
			zap.String("system", string(system)),
			zap.String("step", step),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err = backoff.RetryNotify(operation, s.settings.Retry.backOff(ctx), notify)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if err != nil && !isIntegration(err) {
		// The retry loop stopped on the caller's context.
		err = integration.Unavailable(system, step, err)
	}
	return err
}

func isIntegration(err error) bool {
	var ie *integration.Error
	return errors.As(err, &ie)
}
