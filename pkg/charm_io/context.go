// pkg/charm_io/context.go

package charm_io

import (
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RuntimeContext carries everything a single hook, action or CLI run needs:
// a traced context, a scoped logger and free-form attributes that end up on
// the closing span.
type RuntimeContext struct {
	Ctx          context.Context
	Log          *zap.Logger
	Timestamp    time.Time
	Span         trace.Span
	Command      string
	Component    string
	InvocationID string
	Attributes   map[string]string
}

// NewContext sets up tracing and logging for one command invocation.
func NewContext(parent context.Context, cmdName string) *RuntimeContext {
	if parent == nil {
		parent = context.Background()
	}
	ctx, span := telemetry.Start(parent, cmdName)
	invocation := uuid.New().String()[:8]

	comp, _ := resolveCallContext(3)
	base := zap.L()
	logger := base.With(
		zap.String("component", comp),
		zap.String("command", cmdName),
		zap.String("invocation_id", invocation),
	).Named(comp)

	return &RuntimeContext{
		Ctx:          ctx,
		Span:         span,
		Log:          logger,
		Timestamp:    time.Now(),
		Component:    comp,
		Command:      cmdName,
		InvocationID: invocation,
		Attributes:   make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("Panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome, records span attributes and flushes.
func (rc *RuntimeContext) End(errPtr *error) {
	var err error
	if errPtr != nil {
		err = *errPtr
	}
	duration := time.Since(rc.Timestamp)

	if err == nil {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else {
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(err))
	}

	if rc.Span != nil {
		attrs := []attribute.KeyValue{
			attribute.Bool("success", err == nil),
			attribute.Int64("duration_ms", duration.Milliseconds()),
			attribute.String("os", runtime.GOOS),
			attribute.String("args", strings.Join(os.Args[1:], " ")),
			attribute.String("version", shared.Version),
			attribute.String("invocation_id", rc.InvocationID),
			attribute.String("error_type", charm_err.Category(err)),
		}
		for k, v := range rc.Attributes {
			attrs = append(attrs, attribute.String(k, v))
		}
		rc.Span.SetAttributes(attrs...)
		if err != nil {
			rc.Span.RecordError(err)
		}
		rc.Span.End()
	}

	shared.SafeSync()
}

func resolveCallContext(skip int) (component, action string) {
	pc, file, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", "unknown"
	}
	parts := strings.Split(file, "/")
	if len(parts) >= 2 {
		component = parts[len(parts)-2]
	} else {
		component = strings.TrimSuffix(parts[0], ".go")
	}
	action = "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		fields := strings.Split(fn.Name(), ".")
		action = fields[len(fields)-1]
	}
	return component, action
}
