package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/forgo/staffhub/internal/model"
)

// AuditRepository defines the interface for audit storage
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditEntry) error
	List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error)
}

// Auditor records mutations. Implementations must never fail the caller.
type Auditor interface {
	Record(ctx context.Context, actorID, action, entity, entityID string, details map[string]any)
}

// AuditService writes and queries audit entries
type AuditService struct {
	repo   AuditRepository
	logger *slog.Logger
	now    func() time.Time
}

// AuditServiceConfig holds configuration for the audit service
type AuditServiceConfig struct {
	Repo   AuditRepository
	Logger *slog.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(cfg AuditServiceConfig) *AuditService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{
		repo:   cfg.Repo,
		logger: logger,
		now:    time.Now,
	}
}

// Record writes an entry into the partition of the current month.
// A failed write is logged and swallowed.
func (s *AuditService) Record(ctx context.Context, actorID, action, entity, entityID string, details map[string]any) {
	occurred := s.now().UTC()
	entry := &model.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		Partition:  model.AuditPartition(occurred),
		Details:    details,
		OccurredOn: occurred,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed",
			"action", action,
			"entity", entity,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// List returns audit entries matching the filter, newest first
func (s *AuditService) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditEntry, error) {
	filter.Limit = model.ClampLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, string, string, string, string, map[string]any) {}

func auditorOrNoop(a Auditor) Auditor {
	if a == nil {
		return noopAuditor{}
	}
	return a
}
