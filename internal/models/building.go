package models

import (
	"time"
)

type Street struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:160;not null" json:"name"`
	City      string    `gorm:"size:120;index" json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

type Building struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	StreetID     uint    `gorm:"not null;index" json:"street_id"`
	Street       Street  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"street"`
	StreetNumber int     `gorm:"not null" json:"street_number"`
	BuildingName string  `gorm:"size:160" json:"building_name"`
	Lat          float64 `gorm:"type:numeric(10,7)" json:"lat"`
	Lng          float64 `gorm:"type:numeric(10,7)" json:"lng"`

	// Denormalized aggregates, recomputed asynchronously after approve/remove.
	ReviewCount int     `gorm:"default:0" json:"review_count"`
	AvgScore    float64 `gorm:"type:numeric(4,2);default:0" json:"avg_score"`

	CreatedAt time.Time `json:"created_at"`
}
