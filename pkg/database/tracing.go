package database

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/aisearch/pkg/database"

// SlowQueryThreshold is the duration above which TraceQuery logs a warning.
const SlowQueryThreshold = 2 * time.Second

// TraceQuery starts a client span for a catalog query. Call the returned
// function with the query's error when it completes:
//
//	ctx, end := database.TraceQuery(ctx, logger, "postgresql", "ListProducts", stmt)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, logger *slog.Logger, system, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if elapsed := time.Since(start); logger != nil && elapsed >= SlowQueryThreshold {
			logger.WarnContext(ctx, "slow query detected",
				slog.String("db_system", system),
				slog.String("operation", operation),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
