package observability

import (
	"context"
)

// Call runs fn and re-panics after reporting if fn panics.
func Call(ctx context.Context, fn func()) {
	defer func() { PanicIfNotNil(ctx, recover()) }()
	fn()
}

// CallSafe runs fn and swallows (after reporting) a panic; returns true if fn panicked.
func CallSafe(ctx context.Context, fn func()) (panicked bool) {
	defer func() {
		if ReportPanicIfNotNil(ctx, recover()) {
			panicked = true
		}
	}()
	fn()
	return false
}

func Go(ctx context.Context, fn func(ctx context.Context)) {
	go Call(ctx, func() { fn(ctx) })
}

func GoSafe(ctx context.Context, fn func(ctx context.Context)) {
	go CallSafe(ctx, func() { fn(ctx) })
}
