// Package retry provides a single retry policy shared by every component
// that talks to an upstream provider.
//
// Errors are classified into three classes: fatal errors fail immediately,
// rate-limit errors back off exponentially, and transient errors back off
// linearly. The same policy object drives the server-side transcription
// stage and the session controller's resubmission loop.
package retry

import (
	"context"
	"time"
)

// Class describes how an error should be handled.
type Class int

const (
	// Fatal errors are not retried.
	Fatal Class = iota
	// RateLimited errors back off exponentially (base * 2^attempt).
	RateLimited
	// Transient errors back off linearly (base * attempt).
	Transient
)

// Classifier maps an error to a retry class.
type Classifier func(err error) Class

// Policy is a reusable retry policy.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the unit delay that backoff multiplies.
	BaseDelay time.Duration

	// MaxDelay caps any single backoff sleep. Zero means uncapped.
	MaxDelay time.Duration

	// Classify decides whether an error is retried and how.
	// A nil Classify treats every error as Transient.
	Classify Classifier

	// Sleep is substitutable for tests. Defaults to a context-aware wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy mirrors the backoff used by the voice pipeline:
// three attempts, one second base delay, thirty second cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the backoff before the given retry attempt (attempt >= 1).
func (p Policy) Delay(class Class, attempt int) time.Duration {
	var d time.Duration
	switch class {
	case RateLimited:
		d = p.BaseDelay * (1 << attempt)
	case Transient:
		d = p.BaseDelay * time.Duration(attempt)
	default:
		return 0
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, the error is fatal, attempts are exhausted,
// or the context is done. The last error is returned on failure.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			class := p.classify(lastErr)
			if class == Fatal {
				return lastErr
			}
			if err := sleep(ctx, p.Delay(class, attempt)); err != nil {
				return err
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return lastErr
}

func (p Policy) classify(err error) Class {
	if p.Classify == nil {
		return Transient
	}
	return p.Classify(err)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
