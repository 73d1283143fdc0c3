// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cdm

import (
	"context"
	"testing"
	"time"
)

func TestGenerateSessionTransitionsToAwaitingChallenge(t *testing.T) {
	s := NewSession()
	if err := s.GenerateSession(context.Background(), []byte{1, 2, 3}); err != nil {
		t.Fatalf("GenerateSession: %v", err)
	}
	if !s.WaitForState(StateAwaitingChallenge, time.Second) {
		t.Fatal("did not reach StateAwaitingChallenge")
	}
}

func TestGenerateSessionRejectsEmptyInitData(t *testing.T) {
	s := NewSession()
	if err := s.GenerateSession(context.Background(), nil); err == nil {
		t.Fatal("GenerateSession(nil) = nil error, want error")
	}
	if !s.WaitForState(StateError, time.Second) {
		t.Fatal("session did not move to StateError on empty init data")
	}
}

func TestDeliverChallengeUnblocksWaitForState(t *testing.T) {
	s := NewSession()
	_ = s.GenerateSession(context.Background(), []byte{1})

	done := make(chan bool, 1)
	go func() { done <- s.WaitForState(StateChallengeReady, time.Second) }()

	time.Sleep(5 * time.Millisecond)
	s.DeliverChallenge([]byte("challenge-bytes"))

	if !<-done {
		t.Fatal("WaitForState(ChallengeReady) = false after DeliverChallenge")
	}
	if string(s.Challenge()) != "challenge-bytes" {
		t.Fatalf("Challenge() = %q, want %q", s.Challenge(), "challenge-bytes")
	}
}

func TestProcessKeyTimesOutWithoutDeliverKeyUpdate(t *testing.T) {
	s := NewSession()
	_, err := s.ProcessKey([]byte("license"), 20*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("ProcessKey error = %v, want ErrTimeout", err)
	}
}

func TestProcessKeyReturnsDeliveredStatus(t *testing.T) {
	s := NewSession()
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.DeliverKeyUpdate(7)
	}()
	status, err := s.ProcessKey([]byte("license"), time.Second)
	if err != nil {
		t.Fatalf("ProcessKey: %v", err)
	}
	if status != 7 {
		t.Fatalf("status = %d, want 7", status)
	}
}

func TestDecryptFailsClosedOnHDCPBeforeTouchingCDMState(t *testing.T) {
	s := NewSession()
	if err := s.Decrypt(true, false); err != ErrHDCPNonCompliant {
		t.Fatalf("Decrypt() = %v, want ErrHDCPNonCompliant", err)
	}
}

func TestDecryptRequiresKeyReady(t *testing.T) {
	s := NewSession()
	if err := s.Decrypt(false, false); err == nil {
		t.Fatal("Decrypt() before key ready = nil error, want error")
	}
	s.DeliverKeyUpdate(0)
	if err := s.Decrypt(true, true); err != nil {
		t.Fatalf("Decrypt() with satisfied HDCP and key ready: %v", err)
	}
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	s := NewSession()
	s.Close()
	s.Close()
	if !s.WaitForState(StateClosed, time.Second) {
		t.Fatal("session not in StateClosed after Close")
	}
	if err := s.GenerateSession(context.Background(), []byte{1}); err != ErrClosed {
		t.Fatalf("GenerateSession after Close = %v, want ErrClosed", err)
	}
}
