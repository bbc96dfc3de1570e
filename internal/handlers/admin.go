package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"livedhere/internal/db"
	"livedhere/internal/models"
	"livedhere/internal/services"
	"livedhere/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler is the moderation surface. Routes are mounted behind
// middleware.AdminRequired, so every caller here is a moderator.
type AdminHandler struct {
	svc *services.ReviewService
}

func NewAdminHandler(svc *services.ReviewService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListReviews shows the moderation queue, optionally filtered by status.
// Moderators see the scanner flags the public never does.
func (h *AdminHandler) ListReviews(c *gin.Context) {
	query := db.DB.Model(&models.Review{}).Order("created_at DESC").Limit(200)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var reviews []models.Review
	if err := query.Find(&reviews).Error; err != nil {
		RespondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, gin.H{
			"id":                     review.ID,
			"building_id":            review.BuildingID,
			"status":                 review.Status,
			"tracking_code":          review.TrackingCode,
			"author_type":            review.AuthorType,
			"comment":                review.Comment,
			"overall_score_display":  review.OverallScoreDisplay,
			"pii_flagged":            review.PiiFlagged,
			"pii_reasons":            review.PiiReasons,
			"moderation_message":     review.ModerationMessage,
			"last_moderation_action": review.LastModerationAction,
			"created_at":             review.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

type moderationPayload struct {
	Message         string  `json:"message"`
	RedactedComment *string `json:"redacted_comment"`
}

func (h *AdminHandler) Approve(c *gin.Context) {
	h.moderate(c, models.AuditActionApprove)
}

func (h *AdminHandler) Reject(c *gin.Context) {
	h.moderate(c, models.AuditActionReject)
}

func (h *AdminHandler) RequestChanges(c *gin.Context) {
	h.moderate(c, models.AuditActionRequestChanges)
}

func (h *AdminHandler) Remove(c *gin.Context) {
	h.moderate(c, models.AuditActionRemove)
}

func (h *AdminHandler) moderate(c *gin.Context, action string) {
	// APPROVE and REMOVE may arrive with no body at all.
	var payload moderationPayload
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	reviewID := utils.StringToUint(c.Param("id"))
	if err := h.svc.Moderate(reviewID, CurrentActor(c), action, payload.Message, payload.RedactedComment); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AuditTrail lists every recorded action for one review, newest first.
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	var entries []models.ModerationAuditEntry
	err := db.DB.Where("review_id = ?", utils.StringToUint(c.Param("id"))).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ListReports shows open visitor reports.
func (h *AdminHandler) ListReports(c *gin.Context) {
	var reports []models.Report
	if err := db.DB.Where("resolved_at IS NULL").Order("created_at DESC").Find(&reports).Error; err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ResolveReport closes a report without touching the review; moderators act
// on the review itself through the moderation endpoints.
func (h *AdminHandler) ResolveReport(c *gin.Context) {
	moderator := CurrentUser(c)
	now := time.Now()

	result := db.DB.Model(&models.Report{}).
		Where("id = ? AND resolved_at IS NULL", utils.StringToUint(c.Param("id"))).
		Updates(map[string]interface{}{
			"resolved_at": &now,
			"resolved_by": moderator.ID,
		})
	if result.Error != nil {
		RespondError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
