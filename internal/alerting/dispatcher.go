// Package alerting fans detected alerts out to archive, chat and websocket sinks.
package alerting

import (
	"context"
	"time"

	"dex-sentinel/internal/domain"
	"dex-sentinel/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Sink receives every dispatched alert.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event *domain.AlertEvent) error
}

type Dispatcher struct {
	tracer  trace.Tracer
	logger  *zap.Logger
	metrics *metrics.Metrics
	sinks   []Sink
}

func NewDispatcher(tracer trace.Tracer, logger *zap.Logger, m *metrics.Metrics, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{tracer: tracer, logger: logger, metrics: m}
	for _, s := range sinks {
		d.Register(s)
	}
	return d
}

// Register adds s. Nil sinks are ignored. Not safe to call concurrently with Dispatch.
func (d *Dispatcher) Register(s Sink) {
	if s == nil {
		return
	}
	d.sinks = append(d.sinks, s)
}

func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch delivers event to each sink in registration order. A failing sink
// is logged and does not stop the others. Sinks run in order so the archive
// can assign the ID before the event is pushed out.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.AlertEvent) {
	ctx, span := d.tracer.Start(ctx, "alerting.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("token_key", event.TokenKey.String()),
		attribute.String("alert.kind", string(event.Kind)),
	)

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	for _, s := range d.sinks {
		err := s.Deliver(ctx, &event)
		d.metrics.AlertDelivered(s.Name(), err)
		if err != nil {
			span.RecordError(err)
			d.logger.Warn("alert delivery failed",
				zap.String("sink", s.Name()),
				zap.String("token_key", event.TokenKey.String()),
				zap.Error(err),
			)
		}
	}
}

// Archive persists alerts.
type Archive interface {
	InsertAlert(ctx context.Context, event *domain.AlertEvent) error
}

type archiveSink struct {
	archive Archive
}

// NewArchiveSink returns nil when archive is nil so it can be passed straight to Register.
func NewArchiveSink(archive Archive) Sink {
	if archive == nil {
		return nil
	}
	return archiveSink{archive: archive}
}

func (archiveSink) Name() string { return "archive" }

func (s archiveSink) Deliver(ctx context.Context, event *domain.AlertEvent) error {
	return s.archive.InsertAlert(ctx, event)
}
