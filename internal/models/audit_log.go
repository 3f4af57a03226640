package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Audit actions emitted by the security core
const (
	AuditActionLoginSuccess  = "LOGIN_SUCCESS"
	AuditActionLoginFailed   = "LOGIN_FAILED"
	AuditActionAccountLocked = "ACCOUNT_LOCKED"
	AuditActionLogout        = "LOGOUT"
)

// Entity types accepted by the audit viewer's entity_type filter. Content
// collaborators write their own action strings into these entities.
const (
	AuditEntityAuth    = "auth"
	AuditEntityFighter = "fighter"
	AuditEntityEvent   = "event"
	AuditEntityNews    = "news"
	AuditEntityPage    = "page"
	AuditEntityMedia   = "media"
)

// AuditEntry is one append-only audit row. Entries are never mutated or
// deleted by this service.
type AuditEntry struct {
	ID         string       `db:"id" json:"id"`
	Timestamp  time.Time    `db:"timestamp" json:"timestamp"`
	Username   string       `db:"username" json:"username"`
	Action     string       `db:"action" json:"action"`
	EntityType string       `db:"entity_type" json:"entity_type"`
	EntityID   *string      `db:"entity_id" json:"entity_id,omitempty"`
	Changes    AuditChanges `db:"changes" json:"changes,omitempty"`
	IPAddress  *string      `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  *string      `db:"user_agent" json:"user_agent,omitempty"`
}

// AuditChanges holds the optional before/after payload, stored as JSON text.
type AuditChanges map[string]interface{}

// AuditQuery filters and paginates audit log reads. Zero-value fields are
// ignored; results are newest first.
type AuditQuery struct {
	Username   string
	EntityType string
	Limit      int
	Offset     int
}

// Scan implements sql.Scanner.
func (c *AuditChanges) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported audit changes type %T", value)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = AuditChanges(m)
	return nil
}

// Value implements driver.Valuer.
func (c AuditChanges) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}
