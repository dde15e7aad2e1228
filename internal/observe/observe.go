// Package observe wraps storage calls with a zap log record and an
// OpenTelemetry span.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/Alp4ka/gofilter"

// Observer holds the logger and tracer of a store. The zero value is not
// usable, use New.
type Observer struct {
	logger *zap.Logger
	tracer trace.Tracer
}

// New returns an Observer with a no-op logger and the global tracer.
func New() Observer {
	return Observer{
		logger: zap.NewNop(),
		tracer: otel.Tracer(instrumentationName),
	}
}

// WithLogger returns a copy of o logging to logger. Nil keeps the current one.
func (o Observer) WithLogger(logger *zap.Logger) Observer {
	if logger != nil {
		o.logger = logger
	}

	return o
}

// WithTracer returns a copy of o tracing with tracer. Nil keeps the current one.
func (o Observer) WithTracer(tracer trace.Tracer) Observer {
	if tracer != nil {
		o.tracer = tracer
	}

	return o
}

// Logger returns the underlying logger.
func (o Observer) Logger() *zap.Logger {
	return o.logger
}

// Finish ends an observed call.
type Finish func(rows int64, err error)

// Start opens a span named "gofilter.<op>" and returns the span context with
// the function closing it. The finish function logs at debug level, or at
// error level when err is not nil.
func (o Observer) Start(ctx context.Context, op string, from string) (context.Context, Finish) {
	ctx, span := o.tracer.Start(ctx, "gofilter."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.collection", from)),
	)
	began := time.Now()

	return ctx, func(rows int64, err error) {
		defer span.End()

		fields := []zap.Field{
			zap.String("op", op),
			zap.String("from", from),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", time.Since(began)),
		}
		span.SetAttributes(attribute.Int64("gofilter.rows", rows))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.logger.Error("store call failed", append(fields, zap.Error(err))...)

			return
		}

		o.logger.Debug("store call", fields...)
	}
}
