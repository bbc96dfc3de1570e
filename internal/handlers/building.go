package handlers

import (
	"net/http"
	"time"

	"livedhere/internal/db"
	"livedhere/internal/models"
	"livedhere/internal/services"
	"livedhere/internal/utils"

	"github.com/gin-gonic/gin"
)

type BuildingHandler struct{}

func NewBuildingHandler() *BuildingHandler {
	return &BuildingHandler{}
}

func (h *BuildingHandler) Show(c *gin.Context) {
	var building models.Building
	err := db.DB.Preload("Street").First(&building, utils.StringToUint(c.Param("id"))).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, building)
}

// Reviews lists a building's approved reviews. Listings are cached briefly;
// the stats worker drops the key when moderation changes what's public.
func (h *BuildingHandler) Reviews(c *gin.Context) {
	buildingID := utils.StringToUint(c.Param("id"))
	cacheKey := services.BuildingReviewsCacheKey(buildingID)

	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if items, ok := cached.([]gin.H); ok {
			c.JSON(http.StatusOK, items)
			return
		}
	}

	var reviews []models.Review
	err := db.DB.Where("building_id = ? AND status = ?", buildingID, models.StatusApproved).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		RespondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, gin.H{
			"id":                    review.ID,
			"ratings":               review.Ratings,
			"overall_score_exact":   review.OverallScoreExact,
			"overall_score_display": review.OverallScoreDisplay,
			"comment_html":          utils.RenderComment(review.Comment),
			"verified":              review.AuthorBadge == models.BadgeVerifiedAccount,
			"lived_from_year":       review.LivedFromYear,
			"lived_to_year":         review.LivedToYear,
			"language_tag":          review.LanguageTag,
			"created_at":            review.CreatedAt,
		})
	}

	utils.GetCache().Set(cacheKey, items, 1*time.Minute)
	c.JSON(http.StatusOK, items)
}
