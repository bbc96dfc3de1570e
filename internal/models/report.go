package models

import (
	"time"

	"github.com/google/uuid"
)

// Reasons a visitor can give when flagging a published review.
const (
	ReportReasonPII        = "PII"
	ReportReasonHarassment = "Harassment"
	ReportReasonFalseInfo  = "FalseInfo"
	ReportReasonSpam       = "Spam"
	ReportReasonOther      = "Other"
)

type Report struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReviewID       uint       `gorm:"not null;index" json:"review_id"`
	Review         Review     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ReporterType   string     `gorm:"size:16;not null" json:"reporter_type"` // user, anonymous
	ReporterUserID *uuid.UUID `gorm:"type:uuid" json:"reporter_user_id"`
	Reason         string     `gorm:"size:20;not null" json:"reason"`
	Details        string     `gorm:"type:text" json:"details"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	ResolvedBy     *uuid.UUID `gorm:"type:uuid" json:"resolved_by"`
}
