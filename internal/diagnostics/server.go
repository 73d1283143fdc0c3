// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package diagnostics exposes a read-only HTTP surface over the running
// core's internal state: session-manager occupancy, scheduler queue
// depth, curl-store bucket occupancy and the config store's current
// values. It never accepts a write — every handler here is a snapshot.
package diagnostics

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/drmcore/internal/config"
	"github.com/ManuGH/drmcore/internal/curlstore"
	"github.com/ManuGH/drmcore/internal/drm"
	"github.com/ManuGH/drmcore/internal/log"
	"github.com/ManuGH/drmcore/internal/scheduler"
)

// Deps is every component this surface can report on. A nil field makes
// the route that reports on it answer 503 Service Unavailable.
type Deps struct {
	Config    *config.Store
	Curl      *curlstore.Store
	Scheduler *scheduler.Scheduler
	Sessions  *drm.SessionManager
}

// NewRouter builds the chi router serving the diagnostics surface. Mount
// it on an internal-only listener; it has no authentication of its own.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(log.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/debug/scheduler", func(w http.ResponseWriter, r *http.Request) {
		if deps.Scheduler == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not wired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"state":       deps.Scheduler.GetState().String(),
			"queue_depth": deps.Scheduler.QueueDepth(),
		})
	})

	r.Get("/debug/curlstore", func(w http.ResponseWriter, r *http.Request) {
		if deps.Curl == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "curl store not wired"})
			return
		}
		writeJSON(w, http.StatusOK, deps.Curl.Snapshot())
	})

	r.Get("/debug/sessions", func(w http.ResponseWriter, r *http.Request) {
		if deps.Sessions == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session manager not wired"})
			return
		}
		writeJSON(w, http.StatusOK, deps.Sessions.Snapshot())
	})

	// /debug/decrypt-check exercises a session's output-protection gate
	// without decoding anything: it reports whether the link state passed
	// in would currently be allowed to decrypt the given key-id.
	r.Get("/debug/decrypt-check", func(w http.ResponseWriter, r *http.Request) {
		if deps.Sessions == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session manager not wired"})
			return
		}
		kid, err := hex.DecodeString(r.URL.Query().Get("key_id"))
		if err != nil || len(kid) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid key_id"})
			return
		}
		hdcp22 := r.URL.Query().Get("link_hdcp22") == "true"
		if err := deps.Sessions.Decrypt(kid, hdcp22); err != nil {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "decrypt_allowed"})
	})

	r.Get("/debug/config", func(w http.ResponseWriter, r *http.Request) {
		if deps.Config == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "config store not wired"})
			return
		}
		writeJSON(w, http.StatusOK, deps.Config.Snapshot())
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
