package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Review lifecycle states.
const (
	StatusPending          = "PENDING"
	StatusApproved         = "APPROVED"
	StatusRejected         = "REJECTED"
	StatusChangesRequested = "CHANGES_REQUESTED"
	StatusRemoved          = "REMOVED"
)

// Author kinds and badges.
const (
	AuthorTypeUser      = "USER"
	AuthorTypeAnonymous = "ANONYMOUS"

	BadgeVerifiedAccount = "VERIFIED_ACCOUNT"
	BadgeNone            = "NONE"
)

// StringList stores an ordered list of strings as a JSON array column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return errors.New("unsupported type for StringList")
}

// Ratings are the ten 1-5 category scores every review carries.
type Ratings struct {
	PeopleNoise         int `json:"people_noise"`
	AnimalNoise         int `json:"animal_noise"`
	Insulation          int `json:"insulation"`
	PestIssues          int `json:"pest_issues"`
	AreaSafety          int `json:"area_safety"`
	NeighbourhoodVibe   int `json:"neighbourhood_vibe"`
	OutdoorSpaces       int `json:"outdoor_spaces"`
	Parking             int `json:"parking"`
	BuildingMaintenance int `json:"building_maintenance"`
	ConstructionQuality int `json:"construction_quality"`
}

// Values returns the categories in their canonical order.
func (r Ratings) Values() [10]int {
	return [10]int{
		r.PeopleNoise, r.AnimalNoise, r.Insulation, r.PestIssues, r.AreaSafety,
		r.NeighbourhoodVibe, r.OutdoorSpaces, r.Parking, r.BuildingMaintenance,
		r.ConstructionQuality,
	}
}

type Review struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	BuildingID uint     `gorm:"not null;index:ix_review_status_building,priority:2;index" json:"building_id"`
	Building   Building `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	AuthorUserID *uuid.UUID `gorm:"type:uuid;index" json:"author_user_id"`
	AuthorType   string     `gorm:"size:16;not null;default:'ANONYMOUS'" json:"author_type"`
	AuthorBadge  string     `gorm:"size:24;not null;default:'NONE'" json:"author_badge"`

	Status       string `gorm:"size:24;not null;default:'PENDING';index:ix_review_status_building,priority:1" json:"status"`
	TrackingCode string `gorm:"size:24;uniqueIndex;not null" json:"tracking_code"`

	// Set only for anonymous authors; account authors edit via their session.
	EditTokenHash      *string    `gorm:"size:64;index" json:"-"`
	EditTokenExpiresAt *time.Time `json:"-"`

	LanguageTag         string `gorm:"size:8;default:'pt'" json:"language_tag"`
	LivedFromYear       int    `json:"lived_from_year"`
	LivedToYear         *int   `json:"lived_to_year"` // nil while the stay is ongoing
	LivedDurationMonths int    `json:"lived_duration_months"`

	Ratings Ratings `gorm:"embedded" json:"ratings"`

	OverallScoreExact   float64 `gorm:"type:numeric(4,2)" json:"overall_score_exact"`
	OverallScoreDisplay float64 `gorm:"type:numeric(3,1)" json:"overall_score_display"`

	Comment    string     `gorm:"type:text" json:"comment"`
	PiiFlagged bool       `gorm:"default:false" json:"pii_flagged"`
	PiiReasons StringList `gorm:"type:jsonb" json:"pii_reasons"`

	ModerationMessage    string     `gorm:"type:text" json:"moderation_message"`
	LastModerationAction string     `gorm:"size:24" json:"last_moderation_action"`
	ModeratedByUserID    *uuid.UUID `gorm:"type:uuid" json:"moderated_by_user_id"`
	ApprovedAt           *time.Time `json:"approved_at"`
	RemovedAt            *time.Time `json:"removed_at"`

	SubmitIP          string `gorm:"size:64" json:"-"`
	SubmitFingerprint string `gorm:"size:64" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EditCredential is the tagged view over who may revise a review: exactly one
// of the two variants applies, depending on authorship.
type EditCredential interface {
	isEditCredential()
}

type AccountOwner struct {
	UserID uuid.UUID
}

type AnonymousToken struct {
	Hash      string
	ExpiresAt time.Time
}

func (AccountOwner) isEditCredential()   {}
func (AnonymousToken) isEditCredential() {}

// EditCredential returns the credential variant for this review, or nil when
// the row is inconsistent (no author and no token).
func (r *Review) EditCredential() EditCredential {
	if r.AuthorUserID != nil {
		return AccountOwner{UserID: *r.AuthorUserID}
	}
	if r.EditTokenHash != nil && r.EditTokenExpiresAt != nil {
		return AnonymousToken{Hash: *r.EditTokenHash, ExpiresAt: *r.EditTokenExpiresAt}
	}
	return nil
}
