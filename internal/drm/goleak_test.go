// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package drm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/goleak"
)

func TestCreateDrmSessionLeavesNoGoroutineLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("license-bytes"))
	}))
	defer srv.Close()

	m, helper := newTestManager(t, srv.URL)
	sess, derr := m.CreateDrmSession(context.Background(), helper)
	if derr != nil {
		t.Fatalf("CreateDrmSession: %v", derr)
	}
	if sess.State() != StateReady {
		t.Fatalf("session state = %v, want ready", sess.State())
	}
}
