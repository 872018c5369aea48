package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/taskmind/taskmind/engine"
)

// Op is any fallible thunk wrapped by Execute.
type Op[T any] func(ctx context.Context) (T, error)

// Engine wraps fallible calls with a Policy, recording attempts and
// emitting metrics: retry.attempts.total (gauge), retry.failures.total
// (gauge), retry.duration.total (timer), and retry.operations.count
// (counter), each tagged with operation name, final success, policy
// class, and whether any retry occurred.
type Engine struct {
	Policy    Policy
	Logger    engine.Logger
	Telemetry engine.Telemetry
}

// NewEngine constructs a retry engine bound to one policy.
func NewEngine(policy Policy, logger engine.Logger, telemetry engine.Telemetry) *Engine {
	return &Engine{
		Policy:    policy,
		Logger:    engine.ResolveLogger(logger, "engine/retry"),
		Telemetry: engine.ResolveTelemetry(telemetry),
	}
}

// Execute runs op under the engine's policy, retrying failures until the
// policy says to stop, the context is cancelled, or op succeeds.
//
// On success it returns the result. On exhaustion or a non-retryable
// error it returns the zero value and the most recent error, unchanged.
// Cancellation during the inter-attempt sleep surfaces an
// *engine.CancellationError immediately.
func Execute[T any](ctx context.Context, e *Engine, operationName string, op Op[T]) (T, error) {
	rc := NewContext()
	var zero T

	for {
		select {
		case <-ctx.Done():
			var zeroT T
			e.emitMetrics(operationName, rc, false, rc.Attempt > 1)
			return zeroT, engine.NewCancellationError(operationName, ctx.Err())
		default:
		}

		result, err := op(ctx)
		if err == nil {
			rc.recordSuccess()
			e.emitMetrics(operationName, rc, true, rc.Attempt > 0)
			return result, nil
		}

		rc.recordFailure(err)

		if !e.Policy.IsRetryable(err) {
			e.Logger.Warn("retry: non-retryable error, surfacing immediately", map[string]interface{}{
				"operation": operationName,
				"policy":    e.Policy.Name(),
				"attempt":   rc.Attempt,
				"error":     err.Error(),
			})
			e.emitMetrics(operationName, rc, false, rc.Attempt > 1)
			return zero, err
		}

		if !e.Policy.ShouldRetry(rc) {
			e.Logger.Warn("retry: policy declined further attempts", map[string]interface{}{
				"operation": operationName,
				"policy":    e.Policy.Name(),
				"attempt":   rc.Attempt,
				"elapsed":   rc.Elapsed().String(),
			})
			e.emitMetrics(operationName, rc, false, rc.Attempt > 1)
			return zero, fmt.Errorf("%s: %w: %w", operationName, engine.ErrMaxAttemptsExceeded, err)
		}

		delay := e.Policy.RetryDelay(rc)
		e.Logger.Debug("retry: scheduling next attempt", map[string]interface{}{
			"operation": operationName,
			"policy":    e.Policy.Name(),
			"attempt":   rc.Attempt,
			"delay":     delay.String(),
		})

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				e.emitMetrics(operationName, rc, false, rc.Attempt > 1)
				return zero, engine.NewCancellationError(operationName, ctx.Err())
			case <-timer.C:
			}
		}
	}
}

func (e *Engine) emitMetrics(operation string, rc *Context, success bool, retried bool) {
	tags := map[string]string{
		"operation": operation,
		"policy":    e.Policy.Name(),
		"success":   fmt.Sprintf("%t", success),
		"retried":   fmt.Sprintf("%t", retried),
	}
	e.Telemetry.RecordMetric("retry.attempts.total", float64(len(rc.History)), tags)
	failures := 0
	for _, a := range rc.History {
		if !a.Success {
			failures++
		}
	}
	e.Telemetry.RecordMetric("retry.failures.total", float64(failures), tags)
	e.Telemetry.RecordMetric("retry.duration.total", rc.Elapsed().Seconds(), tags)
	e.Telemetry.RecordMetric("retry.operations.count", 1, tags)
}
