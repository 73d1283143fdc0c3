// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchSyncOnEventLoopInvokesImmediately(t *testing.T) {
	m := New()
	var got Event
	m.Subscribe(EventEOS, func(_ context.Context, ev Event) { got = ev })

	ctx := ContextOnEventLoop(context.Background())
	m.Dispatch(ctx, Event{Type: EventEOS}, ModeSync)

	assert.Equal(t, EventEOS, got.Type)
}

func TestDispatchSyncOffLoopDowngradesToAsync(t *testing.T) {
	m := New()
	var mu sync.Mutex
	var received bool
	m.Subscribe(EventEOS, func(_ context.Context, ev Event) {
		mu.Lock()
		received = true
		mu.Unlock()
	})

	m.Dispatch(context.Background(), Event{Type: EventEOS}, ModeSync)

	mu.Lock()
	assert.False(t, received, "sync off the event loop must not invoke synchronously")
	mu.Unlock()

	m.DrainOnce(context.Background())
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, received)
}

func TestAllEventsListenerReceivesEveryType(t *testing.T) {
	m := New()
	var seen []EventType
	m.SubscribeAll(func(_ context.Context, ev Event) { seen = append(seen, ev.Type) })

	ctx := ContextOnEventLoop(context.Background())
	m.Dispatch(ctx, Event{Type: EventEOS}, ModeSync)
	m.Dispatch(ctx, Event{Type: EventDRMMetadata}, ModeSync)

	assert.Equal(t, []EventType{EventEOS, EventDRMMetadata}, seen)
}

func TestReleasedStateDropsAllDispatches(t *testing.T) {
	m := New()
	var called bool
	m.Subscribe(EventEOS, func(_ context.Context, _ Event) { called = true })
	m.SetPlayerState(PlayerStateReleased)

	ctx := ContextOnEventLoop(context.Background())
	m.Dispatch(ctx, Event{Type: EventEOS}, ModeSync)

	assert.False(t, called)
}

func TestFakeTuneSuppressesAllButCompleteAndEOS(t *testing.T) {
	m := New()
	m.SetFakeTune(true)

	var gotMetadata, gotEOS bool
	m.Subscribe(EventDRMMetadata, func(_ context.Context, _ Event) { gotMetadata = true })
	m.Subscribe(EventEOS, func(_ context.Context, _ Event) { gotEOS = true })

	ctx := ContextOnEventLoop(context.Background())
	m.Dispatch(ctx, Event{Type: EventDRMMetadata}, ModeSync)
	m.Dispatch(ctx, Event{Type: EventEOS}, ModeSync)

	assert.False(t, gotMetadata)
	assert.True(t, gotEOS)
}

func TestFlushPendingEventsRevokesQueuedAsyncDispatch(t *testing.T) {
	m := New()
	var called bool
	m.Subscribe(EventEOS, func(_ context.Context, _ Event) { called = true })

	m.Dispatch(context.Background(), Event{Type: EventEOS}, ModeAsync)
	m.FlushPendingEvents()
	m.DrainOnce(context.Background())

	assert.False(t, called, "revoked async event must never dispatch")
}

func TestStartStopDrainsQueuedAsyncEvents(t *testing.T) {
	m := New()
	done := make(chan struct{})
	m.Subscribe(EventEOS, func(_ context.Context, _ Event) { close(done) })

	m.Start(context.Background())
	defer m.Stop()

	m.Dispatch(context.Background(), Event{Type: EventEOS}, ModeAsync)

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "async event never dispatched by internal worker")
	}
}
