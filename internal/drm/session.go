// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package drm

import (
	"sync"
	"time"

	"github.com/ManuGH/drmcore/internal/drm/cdm"
)

// SessionState is a DrmSession's position in its forward-only lifecycle;
// CLOSED is terminal.
type SessionState int

const (
	StateInit SessionState = iota
	StatePending
	StateReady
	StateError
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DrmSession is a cached decryption session bound to one helper and key-id.
type DrmSession struct {
	mu sync.Mutex

	OcdmSystemID      string
	ExternalSessionID string
	Helper            DrmHelper
	KeyID             []byte
	CDM               *cdm.Session

	state SessionState
}

func newSession(helper DrmHelper, keyID []byte, c *cdm.Session) *DrmSession {
	return &DrmSession{
		OcdmSystemID: helper.OcdmSystemID(),
		Helper:       helper,
		KeyID:        append([]byte(nil), keyID...),
		CDM:          c,
		state:        StateInit,
	}
}

// State returns the session's current lifecycle state.
func (s *DrmSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState enforces the forward-only transition rule except for CLOSED,
// which may be entered from any state.
func (s *DrmSession) setState(next SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	if next == StateClosed || next >= s.state {
		s.state = next
	}
}

// WaitReady blocks up to timeout for the session to leave a pre-READY
// state, returning true iff it reached READY in time.
func (s *DrmSession) WaitReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		switch s.State() {
		case StateReady:
			return true
		case StateError, StateClosed:
			return false
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Decrypt applies this session's output-protection gate before a frame is
// handed to the decoder. For clear-decrypt schemes (ClearKey, VGDRM, the
// vanilla AES bypass) IsClearDecrypt skips the CDM's HDCP/key-ready gate;
// VGDRM and vanilla AES are external-license and never run a CDM session.
func (s *DrmSession) Decrypt(linkSatisfiesHDCP22 bool) error {
	if s.Helper.IsClearDecrypt() {
		return nil
	}
	return s.CDM.Decrypt(s.Helper.IsHdcp22Required(), linkSatisfiesHDCP22)
}

// SessionSlot is a bounded cache bucket holding at most one DrmSession.
type SessionSlot struct {
	mu      sync.Mutex
	Session *DrmSession
	KeyIDs  [][]byte
	LastUse time.Time
	Failed  bool
	Primary bool
}

func (sl *SessionSlot) ownsKeyID(kid []byte) bool {
	for _, k := range sl.KeyIDs {
		if bytesEqual(k, kid) {
			return true
		}
	}
	return false
}
