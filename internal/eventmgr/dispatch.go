// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventmgr

import (
	"context"

	"github.com/ManuGH/drmcore/internal/log"
	"github.com/ManuGH/drmcore/internal/metrics"
)

// Dispatch delivers ev to every matching listener according to mode. When
// the player state is PlayerStateReleased, or the fake-tune flag is set
// and ev is neither EventStateChangedComplete nor EventEOS, the event is
// dropped instead.
func (m *Manager) Dispatch(ctx context.Context, ev Event, mode DispatchMode) {
	m.mu.Lock()

	if m.playerState == PlayerStateReleased {
		m.mu.Unlock()
		metrics.EventsDroppedTotal.WithLabelValues("released").Inc()
		return
	}
	if m.fakeTune && ev.Type != EventStateChangedComplete && ev.Type != EventEOS {
		m.mu.Unlock()
		metrics.EventsDroppedTotal.WithLabelValues("fake_tune").Inc()
		return
	}

	effective := m.resolveMode(ctx, mode)

	if effective == ModeSync {
		snap := m.snapshotListenersLocked(ev.Type)
		m.mu.Unlock()
		dispatchSnapshot(ctx, ev, snap)
		metrics.EventsDispatchedTotal.WithLabelValues(string(ev.Type), "sync").Inc()
		return
	}

	m.nextCallbackID++
	id := m.nextCallbackID
	m.pending[id] = true
	m.queue = append(m.queue, asyncItem{ev: ev, callbackID: id})
	m.cond.Signal()
	m.mu.Unlock()
	metrics.EventsDispatchedTotal.WithLabelValues(string(ev.Type), "async").Inc()
}

// resolveMode must be called with m.mu held.
func (m *Manager) resolveMode(ctx context.Context, mode DispatchMode) DispatchMode {
	switch mode {
	case ModeSync:
		if IsOnEventLoop(ctx) {
			return ModeSync
		}
		return ModeAsync
	case ModeAsync:
		return ModeAsync
	default: // ModeDefault
		if m.asyncTuneEnabled || !IsOnEventLoop(ctx) {
			return ModeAsync
		}
		return ModeSync
	}
}

// snapshotListenersLocked must be called with m.mu held. It copies the
// relevant listener slices so dispatch can proceed without holding the
// lock, letting handlers add/remove listeners without deadlock or
// iterator invalidation.
func (m *Manager) snapshotListenersLocked(t EventType) []Listener {
	typed := m.listeners[t]
	snap := make([]Listener, 0, len(typed)+len(m.all))
	snap = append(snap, typed...)
	snap = append(snap, m.all...)
	return snap
}

func dispatchSnapshot(ctx context.Context, ev Event, listeners []Listener) {
	for _, l := range listeners {
		l(ctx, ev)
	}
}

// DrainOnce pops every currently queued async event and dispatches each
// synchronously, tagging ctx as on-event-loop for the duration of each
// call. This is the idle-callback: applications that drive their own
// main loop call DrainOnce once per idle tick instead of Start/Stop.
func (m *Manager) DrainOnce(ctx context.Context) {
	ctx = ContextOnEventLoop(ctx)

	m.mu.Lock()
	items := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, item := range items {
		m.mu.Lock()
		if !m.pending[item.callbackID] {
			// Revoked by FlushPendingEvents since enqueue.
			m.mu.Unlock()
			continue
		}
		snap := m.snapshotListenersLocked(item.ev.Type)
		delete(m.pending, item.callbackID)
		m.mu.Unlock()

		dispatchSnapshot(ctx, item.ev, snap)
	}
}

// FlushPendingEvents revokes every outstanding async event so a
// subsequent DrainOnce (or the internal worker) will not dispatch it;
// used during shutdown so stale events never reach the application after
// the session manager starts tearing down.
func (m *Manager) FlushPendingEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	for id := range m.pending {
		m.pending[id] = false
	}
	m.pending = make(map[uint64]bool)
}

// Start spawns the internal dispatcher goroutine: the manager's own
// stand-in for a main/event-loop thread, used by applications that don't
// drive DrainOnce themselves.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(ctx)
	log.WithComponent("eventmgr").Info().Msg("eventmgr.started")
}

// Stop halts the internal dispatcher goroutine and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.running = false
	m.cond.Broadcast()
	m.mu.Unlock()
	m.wg.Wait()
	log.WithComponent("eventmgr").Info().Msg("eventmgr.stopped")
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && m.running {
			m.cond.Wait()
		}
		if !m.running {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		m.DrainOnce(ctx)
	}
}
