package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/biyuboxing/adminauth/internal/models"
	"github.com/google/uuid"
)

// AuditStore defines the interface for audit log persistence
type AuditStore interface {
	InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	ListAuditEntries(ctx context.Context, q models.AuditQuery) ([]*models.AuditEntry, error)
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// AuditRecord is the caller-facing shape of one audit event.
type AuditRecord struct {
	Username   string
	Action     string
	EntityType string
	EntityID   string
	Changes    models.AuditChanges
	IPAddress  string
	UserAgent  string
}

// AuditService appends security events to the audit log. A failed write can
// never fail the operation it is attached to: errors are logged for
// operators and swallowed.
type AuditService struct {
	store  AuditStore
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditService creates a new AuditService
func NewAuditService(store AuditStore, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Log appends one audit entry and mirrors it to the structured log.
func (s *AuditService) Log(ctx context.Context, rec AuditRecord) {
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  s.now(),
		Username:   rec.Username,
		Action:     rec.Action,
		EntityType: rec.EntityType,
		Changes:    rec.Changes,
	}
	if rec.EntityID != "" {
		entry.EntityID = &rec.EntityID
	}
	if rec.IPAddress != "" {
		entry.IPAddress = &rec.IPAddress
	}
	if rec.UserAgent != "" {
		entry.UserAgent = &rec.UserAgent
	}

	attrs := []slog.Attr{
		slog.String("audit_action", rec.Action),
		slog.String("username", rec.Username),
		slog.String("entity_type", rec.EntityType),
	}
	if rec.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", rec.IPAddress))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)

	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry",
			slog.String("audit_action", rec.Action),
			slog.Any("error", err))
	}
}

// List returns audit entries, newest first, with optional username and
// entity-type filters.
func (s *AuditService) List(ctx context.Context, q models.AuditQuery) ([]*models.AuditEntry, error) {
	if q.Limit <= 0 {
		q.Limit = defaultAuditLimit
	}
	if q.Limit > maxAuditLimit {
		q.Limit = maxAuditLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	return s.store.ListAuditEntries(ctx, q)
}
