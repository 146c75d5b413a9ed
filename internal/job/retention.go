package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultRetentionSpec = "0 0 3 * * *"

type AlertPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionScheduler deletes archived alerts older than the retention window
// on a cron schedule (seconds field included).
type RetentionScheduler struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	cron      *cron.Cron
	pruner    AlertPruner
	retention time.Duration
	now       func() time.Time
}

func NewRetentionScheduler(tracer trace.Tracer, logger *zap.Logger, pruner AlertPruner, retentionDays int, spec string) (*RetentionScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be > 0, got %d", retentionDays)
	}
	if spec == "" {
		spec = DefaultRetentionSpec
	}

	s := &RetentionScheduler{
		tracer:    tracer,
		logger:    logger,
		cron:      cron.New(cron.WithSeconds()),
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}
	if _, err := s.cron.AddFunc(spec, func() {
		_, _ = s.Prune(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("register retention task %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running prune.
func (s *RetentionScheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("alert retention scheduler started", zap.Duration("retention", s.retention))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("alert retention scheduler stopped")
}

func (s *RetentionScheduler) Prune(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "retention.prune")
	defer span.End()

	cutoff := s.now().Add(-s.retention)
	n, err := s.pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("alert retention prune failed", zap.Error(err))
		return 0, err
	}
	span.SetAttributes(attribute.Int64("rows_deleted", n))
	s.logger.Info("pruned archived alerts", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}
