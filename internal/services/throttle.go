package services

import (
	"time"

	"livedhere/internal/config"
	"livedhere/internal/models"

	"gorm.io/gorm"
)

// ThrottleService enforces the rolling-window submission limits. The three
// keys (ip, building, fingerprint) are independent OR conditions: any one at
// its limit rejects the submission and no event is recorded.
type ThrottleService struct {
	db               *gorm.DB
	limitIP          int
	limitBuilding    int
	limitFingerprint int
	window           time.Duration
	now              func() time.Time
}

func NewThrottleService(gdb *gorm.DB, cfg *config.Config) *ThrottleService {
	return &ThrottleService{
		db:               gdb,
		limitIP:          cfg.SubmitLimitPerIP,
		limitBuilding:    cfg.SubmitLimitPerBuilding,
		limitFingerprint: cfg.SubmitLimitPerFingerprint,
		window:           24 * time.Hour,
		now:              time.Now,
	}
}

// CheckAndRecord counts prior events in the trailing window per key and
// either rejects with a RateLimitError or records exactly one new event,
// all inside its own transaction.
func (s *ThrottleService) CheckAndRecord(ip, fingerprint string, buildingID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.checkAndRecord(tx, ip, fingerprint, buildingID)
	})
}

// checkAndRecord runs the count-then-insert on the caller's transaction.
// A single transaction means two concurrent submissions on the same key
// cannot both slip under the limit, and a caller that rolls back discards
// the event along with everything else it wrote.
func (s *ThrottleService) checkAndRecord(tx *gorm.DB, ip, fingerprint string, buildingID uint) error {
	since := s.now().Add(-s.window)

	var count int64
	if err := tx.Model(&models.SubmissionEvent{}).
		Where("ip = ? AND created_at > ?", ip, since).
		Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(s.limitIP) {
		return &RateLimitError{Scope: "ip"}
	}

	if err := tx.Model(&models.SubmissionEvent{}).
		Where("building_id = ? AND created_at > ?", buildingID, since).
		Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(s.limitBuilding) {
		return &RateLimitError{Scope: "building"}
	}

	if err := tx.Model(&models.SubmissionEvent{}).
		Where("fingerprint = ? AND created_at > ?", fingerprint, since).
		Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(s.limitFingerprint) {
		return &RateLimitError{Scope: "fingerprint"}
	}

	event := models.SubmissionEvent{
		IP:          ip,
		Fingerprint: fingerprint,
		BuildingID:  buildingID,
		Type:        "review_submit",
		CreatedAt:   s.now(),
	}
	return tx.Create(&event).Error
}
