// pkg/bootio/context.go

package bootio

import (
	"context"
	"runtime"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/opsforge/vaultboot/pkg/telemetry"
)

// RuntimeContext carries the per-invocation plumbing every phase needs:
// the cancellable context, a named logger, and the command-level span.
type RuntimeContext struct {
	Ctx       context.Context
	Log       *zap.Logger
	Span      trace.Span
	Timestamp time.Time
	Command   string
}

// NewContext sets up tracing and logging for a single command invocation.
func NewContext(ctx context.Context, cmdName string) *RuntimeContext {
	ctx, span := telemetry.Start(ctx, cmdName)
	traceID := span.SpanContext().TraceID().String()

	logger := zap.L().With(
		zap.String("command", cmdName),
		zap.String("trace_id", traceID),
	).Named(cmdName)

	return &RuntimeContext{
		Ctx:       ctx,
		Log:       logger,
		Span:      span,
		Timestamp: time.Now(),
		Command:   cmdName,
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome, records the command span, and closes it.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	duration := time.Since(rc.Timestamp)
	success := *errPtr == nil

	if success {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else {
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(*errPtr))
	}

	rc.Span.SetAttributes(
		attribute.Bool("success", success),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("os", runtime.GOOS),
	)
	if *errPtr != nil {
		rc.Span.RecordError(*errPtr)
	}
}
