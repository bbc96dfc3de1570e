package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"livedhere/internal/models"
	"livedhere/internal/utils"

	"gorm.io/gorm"
)

// BuildingStatsService recomputes a building's denormalized review aggregates
// (approved count, average display score) in the background after moderation
// changes what's public.
type BuildingStatsService struct {
	db      *gorm.DB
	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex
}

var (
	buildingStats *BuildingStatsService
	statsOnce     sync.Once
)

// GetBuildingStatsService returns the singleton stats service, starting its
// background worker on first use.
func GetBuildingStatsService(gdb *gorm.DB) *BuildingStatsService {
	statsOnce.Do(func() {
		buildingStats = &BuildingStatsService{
			db:      gdb,
			queue:   make(chan uint, 1000),
			pending: make(map[uint]bool),
		}
		go buildingStats.worker()
	})
	return buildingStats
}

// BuildingReviewsCacheKey is the cache key for a building's public review
// listing; the stats worker drops it whenever aggregates change.
func BuildingReviewsCacheKey(buildingID uint) string {
	return fmt.Sprintf("building:%d:reviews", buildingID)
}

// ScheduleUpdate queues a recompute, deduplicating bursts for the same
// building. Non-blocking: if the queue is full the update is skipped.
func (s *BuildingStatsService) ScheduleUpdate(buildingID uint) {
	s.mu.Lock()
	if s.pending[buildingID] {
		s.mu.Unlock()
		return
	}
	s.pending[buildingID] = true
	s.mu.Unlock()

	select {
	case s.queue <- buildingID:
	default:
		s.mu.Lock()
		delete(s.pending, buildingID)
		s.mu.Unlock()
		log.Printf("building stats queue full, skipping building %d", buildingID)
	}
}

func (s *BuildingStatsService) worker() {
	batch := make([]uint, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case id := <-s.queue:
			batch = append(batch, id)
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *BuildingStatsService) processBatch(ids []uint) {
	for _, id := range ids {
		s.Recompute(id)

		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
}

// Recompute refreshes one building's aggregates and drops the cached listing.
func (s *BuildingStatsService) Recompute(buildingID uint) {
	type row struct {
		Count int64
		Avg   float64
	}
	var r row
	err := s.db.Model(&models.Review{}).
		Select("COUNT(*) as count, COALESCE(AVG(overall_score_display), 0) as avg").
		Where("building_id = ? AND status = ?", buildingID, models.StatusApproved).
		Scan(&r).Error
	if err != nil {
		log.Printf("failed to aggregate reviews for building %d: %v", buildingID, err)
		return
	}

	err = s.db.Model(&models.Building{}).
		Where("id = ?", buildingID).
		Updates(map[string]interface{}{
			"review_count": r.Count,
			"avg_score":    roundTo(r.Avg, 2),
		}).Error
	if err != nil {
		log.Printf("failed to update stats for building %d: %v", buildingID, err)
		return
	}

	utils.GetCache().Delete(BuildingReviewsCacheKey(buildingID))
}
