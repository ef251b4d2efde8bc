package observability

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
)

// ErrPanic is a recovered panic value with the stack it was recovered at.
type ErrPanic struct {
	Value any
	Stack []byte
}

var _ error = ErrPanic{}

func (e ErrPanic) Error() string {
	return fmt.Sprintf("got panic: %v", e.Value)
}

func (e ErrPanic) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// PanicIfNotNil reports r and panics again with an ErrPanic.
func PanicIfNotNil(ctx context.Context, r any) {
	if r == nil {
		return
	}
	err := ErrPanic{Value: r, Stack: debug.Stack()}
	report(ctx, err)
	panic(err)
}

func ReportPanicIfNotNil(ctx context.Context, r any) bool {
	if r == nil {
		return false
	}
	report(ctx, ErrPanic{Value: r, Stack: debug.Stack()})
	return true
}

func report(ctx context.Context, err ErrPanic) {
	logger.FromCtx(ctx).
		WithField("error_event_exception_stack_trace", string(err.Stack)).
		Error(err)
	errmon.ObserveRecoverCtx(ctx, err.Value)
	belt.Flush(ctx)
}
