package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/pkg/jobs"
)

type auditLogRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService persists audit trail entries off the request path. Entries
// are handed to an in-memory worker pool; when the buffer is full the entry
// is dropped with a warning rather than blocking the caller.
type AuditService struct {
	repo   auditLogRepository
	pool   *jobs.Pool
	logger *zap.Logger
}

// NewAuditService constructs the audit writer and its backing worker pool.
func NewAuditService(repo auditLogRepository, logger *zap.Logger, cfg jobs.PoolConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.pool = jobs.NewPool("audit", s.handle, cfg)
	return s
}

// Start begins background processing. Must be called before Record.
func (s *AuditService) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	s.pool.Stop()
}

// Record enqueues an audit entry for asynchronous persistence.
func (s *AuditService) Record(entry *models.AuditLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	accepted := s.pool.TrySubmit(jobs.Task{
		ID:      entry.ID,
		Kind:    entry.Action,
		Payload: entry,
	})
	if !accepted {
		s.logger.Warn("audit entry dropped", zap.String("action", entry.Action), zap.Int("queue_depth", s.pool.Depth()))
	}
}

func (s *AuditService) handle(ctx context.Context, task jobs.Task) error {
	entry, ok := task.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", task.Payload)
	}
	return s.repo.CreateAuditLog(ctx, entry)
}
