package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sachinkum0009/upgo/internal/runtime/logging"
	"github.com/sachinkum0009/upgo/internal/runtime/umessage"
)

// Middleware wraps a listener around one delivery.
type Middleware func(next Listener) Listener

// Chain composes middlewares so the first argument is outermost. A nil or
// empty chain is the identity.
func Chain(mw ...Middleware) Middleware {
	return func(next Listener) Listener {
		for i := len(mw) - 1; i >= 0; i-- {
			if mw[i] != nil {
				next = mw[i](next)
			}
		}
		return next
	}
}

// Recoverer converts a listener panic into an error log entry. Place it
// outermost so inner middlewares are covered too.
func Recoverer(logger logging.ServiceLogger) Middleware {
	if logger == nil {
		logger = logging.Nop()
	}
	return func(next Listener) Listener {
		return ListenerFunc(func(ctx context.Context, msg umessage.Message) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("listener panicked", fmt.Errorf("panic: %v", p), logging.LogFields{
						"message_id": msg.ID,
						"source":     msg.Source.FilterKey(),
						"kind":       msg.Kind.String(),
					})
				}
			}()
			next.OnReceive(ctx, msg)
		})
	}
}

// LogMessages logs every delivery at debug level.
func LogMessages(logger logging.ServiceLogger) Middleware {
	if logger == nil {
		logger = logging.Nop()
	}
	return func(next Listener) Listener {
		return ListenerFunc(func(ctx context.Context, msg umessage.Message) {
			logger.Debug("dispatching message", logging.LogFields{
				"message_id": msg.ID,
				"source":     msg.Source.FilterKey(),
				"kind":       msg.Kind.String(),
			})
			next.OnReceive(ctx, msg)
		})
	}
}

// Metrics counts deliveries and observes their duration on the given
// Prometheus registerer. The system label distinguishes transports sharing
// one registerer.
func Metrics(reg prometheus.Registerer, system string) Middleware {
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upgo",
		Subsystem: system,
		Name:      "deliveries_total",
		Help:      "Number of listener deliveries, by message kind.",
	}, []string{"kind"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "upgo",
		Subsystem: system,
		Name:      "delivery_duration_seconds",
		Help:      "Time spent inside listener callbacks.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(deliveries, duration)

	return func(next Listener) Listener {
		return ListenerFunc(func(ctx context.Context, msg umessage.Message) {
			start := time.Now()
			next.OnReceive(ctx, msg)
			duration.Observe(time.Since(start).Seconds())
			deliveries.WithLabelValues(msg.Kind.String()).Inc()
		})
	}
}

// Tracer wraps each delivery in an OpenTelemetry span.
func Tracer() Middleware {
	tracer := otel.Tracer("github.com/sachinkum0009/upgo")
	return func(next Listener) Listener {
		return ListenerFunc(func(ctx context.Context, msg umessage.Message) {
			ctx, span := tracer.Start(ctx, "upgo.dispatch",
				trace.WithAttributes(
					attribute.String("upgo.message_id", msg.ID),
					attribute.String("upgo.source", msg.Source.FilterKey()),
					attribute.String("upgo.kind", msg.Kind.String()),
				),
			)
			defer span.End()
			next.OnReceive(ctx, msg)
		})
	}
}
