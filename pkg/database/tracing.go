package database

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/agromarket-storefront/pkg/database"

// TracingHook is a go-redis hook that opens a client span per command or
// pipeline and warns about commands slower than a threshold. Key arguments
// are never recorded.
type TracingHook struct {
	tracer    trace.Tracer
	threshold time.Duration
	logger    *slog.Logger
}

var _ redis.Hook = (*TracingHook)(nil)

// NewTracingHook creates a hook. A zero threshold or nil logger disables
// slow command logging.
func NewTracingHook(threshold time.Duration, logger *slog.Logger) *TracingHook {
	return &TracingHook{
		tracer:    otel.Tracer(tracerName),
		threshold: threshold,
		logger:    logger,
	}
}

// DialHook passes dials through unchanged.
func (h *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook traces a single command.
func (h *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, end := h.start(ctx, cmd.Name(), 1)
		err := next(ctx, cmd)
		end(err)
		return err
	}
}

// ProcessPipelineHook traces a pipeline or MULTI/EXEC block as one span.
func (h *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, end := h.start(ctx, "pipeline", len(cmds))
		err := next(ctx, cmds)
		end(err)
		return err
	}
}

func (h *TracingHook) start(ctx context.Context, operation string, size int) (context.Context, func(error)) {
	begin := time.Now()
	ctx, span := h.tracer.Start(ctx, "redis."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", operation),
			attribute.Int("db.redis.num_cmd", size),
		),
	)

	return ctx, func(err error) {
		// redis.Nil is a cache miss, not a failure.
		if err != nil && !errors.Is(err, redis.Nil) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if h.threshold <= 0 || h.logger == nil {
			return
		}
		if elapsed := time.Since(begin); elapsed >= h.threshold {
			h.logger.WarnContext(ctx, "slow redis command",
				slog.String("operation", operation),
				slog.Int("commands", size),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
