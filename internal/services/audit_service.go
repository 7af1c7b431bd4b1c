package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"chatlink/internal/logger"
	"chatlink/internal/models"
)

// Audit actions, namespaced by the surface that performs them. Handlers pass
// these instead of ad-hoc strings so the dashboard and log queries can group
// by prefix.
const (
	AuditUserRegister = "user.register"
	AuditUserLogin    = "user.login"

	AuditLinkGenerate = "link.generate"
	AuditLinkFinalize = "link.finalize"
	AuditLinkUnlink   = "link.unlink"

	AuditPlanChange    = "billing.change_plan"
	AuditPlanCancel    = "billing.cancel"
	AuditBillingUpdate = "billing.processor_event"
)

// Changes payloads above this size are replaced with a marker instead of
// being stored, keeping a single audit row from bloating the table.
const maxChangesBytes = 4096

// auditService records who did what to which resource. Writes are
// best-effort: a failed audit insert is logged and swallowed so it can never
// fail the operation it describes.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records one audit event.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("audit write failed",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource", resourceType+"/"+resourceID,
		)
	}
}

// encodeChanges serializes the changes map, bounding the stored size.
func encodeChanges(action string, changes map[string]any) string {
	if changes == nil {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Get().Errorw("audit changes not serializable", "error", err, "action", action)
		return "{}"
	}
	if len(data) > maxChangesBytes {
		return `{"truncated":true}`
	}
	return string(data)
}
