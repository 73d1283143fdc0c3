// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package drm

import (
	"testing"
	"time"

	"github.com/ManuGH/drmcore/internal/drm/cdm"
)

func TestSessionStateIsForwardOnly(t *testing.T) {
	s := newSession(&stubHelper{systemID: "x"}, []byte("kid"), cdm.NewSession())

	s.setState(StateReady)
	if s.State() != StateReady {
		t.Fatalf("state = %v, want ready", s.State())
	}

	s.setState(StateInit)
	if s.State() != StateReady {
		t.Fatalf("state regressed to %v after attempting to move backward to init", s.State())
	}
}

func TestSessionCloseIsTerminalFromAnyState(t *testing.T) {
	s := newSession(&stubHelper{systemID: "x"}, []byte("kid"), cdm.NewSession())
	s.setState(StatePending)
	s.setState(StateClosed)
	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}

	s.setState(StateReady)
	if s.State() != StateClosed {
		t.Fatalf("closed session transitioned to %v, want to remain closed", s.State())
	}
}

func TestWaitReadySucceedsOnceSessionReady(t *testing.T) {
	s := newSession(&stubHelper{systemID: "x"}, []byte("kid"), cdm.NewSession())
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.setState(StateReady)
	}()
	if !s.WaitReady(200 * time.Millisecond) {
		t.Fatal("WaitReady() = false, want true once state reaches ready")
	}
}

func TestWaitReadyFailsFastOnError(t *testing.T) {
	s := newSession(&stubHelper{systemID: "x"}, []byte("kid"), cdm.NewSession())
	s.setState(StateError)
	if s.WaitReady(50 * time.Millisecond) {
		t.Fatal("WaitReady() = true, want false when session is in error")
	}
}

func TestSessionSlotOwnsKeyID(t *testing.T) {
	sl := &SessionSlot{KeyIDs: [][]byte{[]byte("a"), []byte("b")}}
	if !sl.ownsKeyID([]byte("b")) {
		t.Fatal("ownsKeyID(b) = false, want true")
	}
	if sl.ownsKeyID([]byte("c")) {
		t.Fatal("ownsKeyID(c) = true, want false")
	}
}
