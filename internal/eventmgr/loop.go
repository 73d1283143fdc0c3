// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package eventmgr

import "context"

type ctxKey struct{}

// ContextOnEventLoop marks ctx as originating from the application's
// single main/event-loop goroutine. A Dispatch call made with such a ctx
// is eligible for true SYNC delivery; without it, SYNC is downgraded to
// Async.
func ContextOnEventLoop(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, true)
}

// IsOnEventLoop reports whether ctx was tagged by ContextOnEventLoop.
func IsOnEventLoop(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKey{}).(bool)
	return v
}
