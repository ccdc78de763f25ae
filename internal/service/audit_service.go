package service

import (
	"context"
	"encoding/json"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget). A persistence
// failure is logged and swallowed; it never fails the calling operation.
func (s *auditService) Log(ctx context.Context, action domain.AuditAction, actorID uuid.UUID, entityType, entityID string, details map[string]interface{}, ipAddress string) {
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		Action:     action,
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  ipAddress,
		CreatedAt:  time.Now(),
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}

	go func() {
		s.log.Info().
			Str("action", string(action)).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Str("ip", ipAddress).
			Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), entry); err != nil {
				s.log.Warn().Err(err).Str("action", string(action)).Msg("failed to persist audit entry")
			}
		}
	}()
}

// Query returns audit entries matching the filter, newest first.
func (s *auditService) Query(ctx context.Context, filter ports.AuditFilter) ([]domain.AuditEntry, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Query(ctx, filter)
}
