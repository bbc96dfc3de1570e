package models

import (
	"time"
)

// SubmissionEvent is one append-only row per accepted submission, used only
// for counting inside the abuse throttle's rolling window. The pipeline never
// updates or deletes these rows.
type SubmissionEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	IP          string    `gorm:"size:64;index;not null" json:"ip"`
	Fingerprint string    `gorm:"size:64;index;not null" json:"fingerprint"`
	BuildingID  uint      `gorm:"index;not null" json:"building_id"`
	Type        string    `gorm:"size:40;index;default:'review_submit'" json:"type"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
