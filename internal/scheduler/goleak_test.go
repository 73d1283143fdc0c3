// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scheduler

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestStartStopLeavesNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := New()
	s.Start()
	s.Schedule(func(any) {}, nil)
	s.Stop()
}

func TestSuspendResumeStopLeavesNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := New()
	s.Start()
	s.Suspend()
	s.Schedule(func(any) {}, nil)
	time.Sleep(5 * time.Millisecond)
	s.Resume()
	s.Stop()
}
