package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/biyuboxing/adminauth/internal/models"
	pkghttp "github.com/biyuboxing/adminauth/pkg/http"
)

// AuditReader defines the interface for querying the audit trail
type AuditReader interface {
	List(ctx context.Context, q models.AuditQuery) ([]*models.AuditEntry, error)
}

// AuditHandler serves the audit trail to administrators.
type AuditHandler struct {
	audit AuditReader
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit AuditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// AuditListResponse wraps a page of audit entries.
type AuditListResponse struct {
	Entries []*models.AuditEntry `json:"entries"`
	Count   int                  `json:"count"`
}

// List returns audit entries, newest first. Supports filtering by username
// and entity type plus limit/offset paging. Route-level middleware restricts
// this to administrators.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := models.AuditQuery{
		Username:   r.URL.Query().Get("username"),
		EntityType: r.URL.Query().Get("entity_type"),
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			pkghttp.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		q.Limit = limit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			pkghttp.WriteBadRequest(w, "offset must be a non-negative integer")
			return
		}
		q.Offset = offset
	}

	entries, err := h.audit.List(r.Context(), q)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	if entries == nil {
		entries = []*models.AuditEntry{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, AuditListResponse{
		Entries: entries,
		Count:   len(entries),
	})
}
