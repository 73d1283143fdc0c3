// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cdm is the uniform façade over the platform content-decryption
// module. Each Session is a state machine object with explicit
// Wait(state, timeout) joins and condition variables, standing in for the
// callback-into-opaque-userdata pattern a native CDM uses.
package cdm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the CDM-reported lifecycle position of one Session.
type State int

const (
	StateIdle State = iota
	StateAwaitingChallenge
	StateChallengeReady
	StateAwaitingKeyUpdate
	StateKeyReady
	StateError
	StateClosed
)

var (
	ErrClosed          = errors.New("cdm: session closed")
	ErrTimeout         = errors.New("cdm: wait timed out")
	ErrHDCPNonCompliant = errors.New("cdm: HDCP compliance check failed")
)

// Session is one CDM-backed decryption session.
type Session struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State

	challenge []byte
	keyStatus int

	closed bool
}

// NewSession constructs an idle Session.
func NewSession() *Session {
	s := &Session{state: StateIdle}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// GenerateSession begins session initialization from initData. It is
// async in spirit: it returns once the request has been handed to the
// (simulated) platform CDM, and the caller joins completion via
// WaitForState(StateChallengeReady, ...).
func (s *Session) GenerateSession(ctx context.Context, initData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(initData) == 0 {
		s.setStateLocked(StateError)
		return errors.New("cdm: empty init data")
	}
	s.setStateLocked(StateAwaitingChallenge)
	return nil
}

// DeliverChallenge is called by the platform binding (or a test double)
// when the underlying CDM produces a license challenge.
func (s *Session) DeliverChallenge(challenge []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = challenge
	s.setStateLocked(StateChallengeReady)
}

// Challenge returns the most recently delivered challenge bytes.
func (s *Session) Challenge() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

// ProcessKey blocks until the key update completes or timeout elapses,
// returning the resulting key status (0 meaning usable).
func (s *Session) ProcessKey(licenseBytes []byte, timeout time.Duration) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	s.setStateLocked(StateAwaitingKeyUpdate)
	s.mu.Unlock()

	// A production binding would hand licenseBytes to the platform CDM
	// here and wait on its callback; DeliverKeyUpdate plays that role in
	// this façade.
	if !s.waitForStateInternal(StateKeyReady, timeout) {
		s.mu.Lock()
		s.setStateLocked(StateError)
		s.mu.Unlock()
		return 0, ErrTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyStatus, nil
}

// DeliverKeyUpdate is called when the platform CDM reports a key status.
func (s *Session) DeliverKeyUpdate(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyStatus = status
	s.setStateLocked(StateKeyReady)
}

// Decrypt verifies output protection before ever calling into the
// platform CDM: if hdcp22Required is set and the link doesn't satisfy it,
// it fails closed without touching the CDM.
func (s *Session) Decrypt(hdcp22Required, linkSatisfiesHDCP22 bool) error {
	if hdcp22Required && !linkSatisfiesHDCP22 {
		return ErrHDCPNonCompliant
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state != StateKeyReady {
		return errors.New("cdm: decrypt called before key ready")
	}
	return nil
}

// WaitForState blocks up to timeout for the session to reach want,
// returning false on timeout or if the session closes first.
func (s *Session) WaitForState(want State, timeout time.Duration) bool {
	return s.waitForStateInternal(want, timeout)
}

func (s *Session) waitForStateInternal(want State, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.state != want {
		if s.closed || s.state == StateError {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.AfterFunc(remaining, func() {
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		})
		s.cond.Wait()
		timer.Stop()
		if time.Now().After(deadline) && s.state != want {
			return false
		}
	}
	return true
}

func (s *Session) setStateLocked(next State) {
	s.state = next
	s.cond.Broadcast()
}

// Close idempotently tears down the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.setStateLocked(StateClosed)
}
