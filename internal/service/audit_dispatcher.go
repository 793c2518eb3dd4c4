package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-gatepass-api/internal/models"
	"github.com/noah-isme/sma-gatepass-api/pkg/jobs"
)

// AuditDispatcher persists audit logs through a background worker pool so
// gate mutations do not wait on the audit write. When the queue is not
// running the write falls through synchronously.
type AuditDispatcher struct {
	queue  *jobs.Queue
	sink   auditLogger
	logger *zap.Logger
}

// NewAuditDispatcher wraps the sink with an async queue.
func NewAuditDispatcher(sink auditLogger, logger *zap.Logger, cfg jobs.QueueConfig) *AuditDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	d := &AuditDispatcher{sink: sink, logger: logger}
	d.queue = jobs.NewQueue("audit", d.handle, cfg)
	return d
}

// Start launches the workers.
func (d *AuditDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *AuditDispatcher) Stop() {
	d.queue.Stop()
}

// CreateAuditLog enqueues the entry for background persistence.
func (d *AuditDispatcher) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	err := d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    entry.Action,
		Payload: entry,
	})
	if err != nil {
		return d.sink.CreateAuditLog(ctx, entry)
	}
	return nil
}

func (d *AuditDispatcher) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	return d.sink.CreateAuditLog(ctx, entry)
}
