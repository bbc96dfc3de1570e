package handlers

import (
	"net/http"

	"livedhere/internal/db"
	"livedhere/internal/models"
	"livedhere/internal/utils"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct{}

func NewReportHandler() *ReportHandler {
	return &ReportHandler{}
}

var validReportReasons = map[string]bool{
	models.ReportReasonPII:        true,
	models.ReportReasonHarassment: true,
	models.ReportReasonFalseInfo:  true,
	models.ReportReasonSpam:       true,
	models.ReportReasonOther:      true,
}

type reportPayload struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// Create lets any visitor flag a published review for moderator attention.
func (h *ReportHandler) Create(c *gin.Context) {
	var payload reportPayload
	if err := c.ShouldBindJSON(&payload); err != nil || !validReportReasons[payload.Reason] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report reason"})
		return
	}

	var review models.Review
	if err := db.DB.First(&review, utils.StringToUint(c.Param("id"))).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	report := models.Report{
		ReviewID:     review.ID,
		ReporterType: "anonymous",
		Reason:       payload.Reason,
		Details:      payload.Details,
	}
	if user := CurrentUser(c); user != nil {
		report.ReporterType = "user"
		id := user.ID
		report.ReporterUserID = &id
	}

	if err := db.DB.Create(&report).Error; err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}
