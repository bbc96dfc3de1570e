package models

import (
	"time"
)

// Audit actions. Moderator actions share their names with the moderation
// triggers; CREATED and RESUBMITTED document author activity.
const (
	AuditActionCreated        = "CREATED"
	AuditActionResubmitted    = "RESUBMITTED"
	AuditActionApprove        = "APPROVE"
	AuditActionReject         = "REJECT"
	AuditActionRequestChanges = "REQUEST_CHANGES"
	AuditActionRemove         = "REMOVE"
)

// AuditActorAuthor marks entries written on behalf of the review's author
// (submission and resubmission); moderator entries carry the moderator's id.
const AuditActorAuthor = "AUTHOR"

// ModerationAuditEntry records one mutating action on a review with full
// before/after snapshots. Append-only: rows are written in the same
// transaction as the change they document and never touched again.
type ModerationAuditEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReviewID   uint      `gorm:"not null;index" json:"review_id"`
	Actor      string    `gorm:"size:40;not null" json:"actor"`
	Action     string    `gorm:"size:24;not null" json:"action"`
	Message    string    `gorm:"type:text" json:"message"`
	BeforeJSON string    `gorm:"type:jsonb" json:"before_json"`
	AfterJSON  string    `gorm:"type:jsonb" json:"after_json"`
	CreatedAt  time.Time `json:"created_at"`
}
