// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock abstracts time for deterministic testing.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

// attempting runs fn through the attempt/success/failure lifecycle the way
// the license-request path drives the breaker (RecordAttempt before the
// call, then RecordSuccess or RecordTechnicalFailure on the outcome).
func attempting(cb *CircuitBreaker, fn func() error) error {
	if !cb.AllowRequest() {
		return ErrCircuitOpen
	}
	cb.RecordAttempt()
	err := fn()
	if err != nil {
		cb.RecordTechnicalFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("license", 2, 2, time.Minute, 100*time.Millisecond, WithClock(clk))

	assert.Equal(t, StateClosed, cb.GetState())

	// 1st failure: below minAttempts/threshold, stays closed.
	err := attempting(cb, func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateClosed, cb.GetState())

	// 2nd failure: threshold and minAttempts both satisfied, trips open.
	err = attempting(cb, func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.GetState())

	// While open, requests are rejected without invoking fn.
	called := false
	err = attempting(cb, func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	// After resetTimeout, breaker allows a half-open probe.
	clk.Advance(150 * time.Millisecond)
	err = attempting(cb, func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.GetState())
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("license", 1, 1, time.Minute, 10*time.Millisecond, WithClock(clk), WithHalfOpenSuccessThreshold(2))

	err := attempting(cb, func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.GetState())

	clk.Advance(20 * time.Millisecond)

	assert.NoError(t, attempting(cb, func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState())

	assert.NoError(t, attempting(cb, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	cb := NewCircuitBreaker("license", 1, 1, time.Minute, 10*time.Millisecond, WithClock(clk))

	_ = attempting(cb, func() error { return errors.New("fail") })
	assert.Equal(t, StateOpen, cb.GetState())

	clk.Advance(20 * time.Millisecond)

	err := attempting(cb, func() error { return errors.New("fail again") })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_PanicRecovery(t *testing.T) {
	cb := NewCircuitBreaker("panic_cb", 1, 1, time.Minute, time.Minute, WithPanicRecovery(true))

	assert.Panics(t, func() {
		_ = cb.Execute(func() error {
			cb.RecordAttempt()
			panic("oops")
		})
	})

	assert.Equal(t, StateOpen, cb.GetState())
}
