package handlers

import (
	"fmt"
	"net/http"

	"livedhere/internal/config"
	"livedhere/internal/db"
	"livedhere/internal/models"
	"livedhere/internal/services"
	"livedhere/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const fingerprintCookie = "lh_fp"

type ReviewHandler struct {
	svc     *services.ReviewService
	captcha *services.CaptchaService
	cfg     *config.Config
}

func NewReviewHandler(svc *services.ReviewService, cfg *config.Config) *ReviewHandler {
	return &ReviewHandler{
		svc:     svc,
		captcha: services.NewCaptchaService(),
		cfg:     cfg,
	}
}

// Captcha hands out a math problem and stashes the answer in the session.
func (h *ReviewHandler) Captcha(c *gin.Context) {
	question, answer := h.captcha.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set("captcha_answer", answer)
	session.Save()
	c.JSON(http.StatusOK, gin.H{"question": question})
}

type stayPayload struct {
	LivedFromYear       int  `json:"lived_from_year"`
	LivedToYear         *int `json:"lived_to_year"`
	LivedDurationMonths int  `json:"lived_duration_months"`
}

type submitPayload struct {
	BuildingID  uint           `json:"building_id"`
	Ratings     models.Ratings `json:"ratings"`
	Comment     string         `json:"comment"`
	LanguageTag string         `json:"language_tag"`
	Captcha     string         `json:"captcha"`
	stayPayload
}

func (h *ReviewHandler) Submit(c *gin.Context) {
	var payload submitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	actor := CurrentActor(c)

	captchaPassed := true
	if actor.Anonymous() && h.cfg.CaptchaEnabled {
		captchaPassed = h.verifyCaptcha(c, payload.Captcha)
	}

	fingerprint, setCookie, err := h.fingerprint(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	result, err := h.svc.Submit(services.SubmitInput{
		BuildingID:  payload.BuildingID,
		Ratings:     payload.Ratings,
		Comment:     payload.Comment,
		LanguageTag: payload.LanguageTag,
		Stay: services.StayFacts{
			LivedFromYear:       payload.LivedFromYear,
			LivedToYear:         payload.LivedToYear,
			LivedDurationMonths: payload.LivedDurationMonths,
		},
		Author:        actor,
		IP:            c.ClientIP(),
		Fingerprint:   fingerprint,
		CaptchaPassed: captchaPassed,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	if setCookie {
		// One year, httponly: the fingerprint is one of the throttle keys.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(fingerprintCookie, fingerprint, 60*60*24*365, "/", "", false, true)
	}

	response := gin.H{"id": result.ReviewID, "tracking_code": result.TrackingCode}
	if result.EditToken != "" {
		response["edit_token"] = result.EditToken
	}
	c.JSON(http.StatusCreated, response)
}

type resubmitPayload struct {
	EditToken string         `json:"edit_token"`
	Ratings   models.Ratings `json:"ratings"`
	Comment   string         `json:"comment"`
	stayPayload
}

func (h *ReviewHandler) Resubmit(c *gin.Context) {
	var payload resubmitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	err := h.svc.Resubmit(services.ResubmitInput{
		TrackingCode: c.Param("code"),
		EditToken:    payload.EditToken,
		Actor:        CurrentActor(c),
		Ratings:      payload.Ratings,
		Comment:      payload.Comment,
		Stay: services.StayFacts{
			LivedFromYear:       payload.LivedFromYear,
			LivedToYear:         payload.LivedToYear,
			LivedDurationMonths: payload.LivedDurationMonths,
		},
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Status serves the anonymous tracking-code lookup.
func (h *ReviewHandler) Status(c *gin.Context) {
	result, err := h.svc.CheckStatus(c.Param("code"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Show returns a single review. Non-approved reviews stay hidden from
// logged-out visitors.
func (h *ReviewHandler) Show(c *gin.Context) {
	var review models.Review
	if err := db.DB.First(&review, utils.StringToUint(c.Param("id"))).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if review.Status != models.StatusApproved && CurrentUser(c) == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "review is not public"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                    review.ID,
		"building_id":           review.BuildingID,
		"status":                review.Status,
		"ratings":               review.Ratings,
		"overall_score_exact":   review.OverallScoreExact,
		"overall_score_display": review.OverallScoreDisplay,
		"comment_html":          utils.RenderComment(review.Comment),
		"verified":              review.AuthorBadge == models.BadgeVerifiedAccount,
		"lived_from_year":       review.LivedFromYear,
		"lived_to_year":         review.LivedToYear,
		"created_at":            review.CreatedAt,
	})
}

func (h *ReviewHandler) verifyCaptcha(c *gin.Context, input string) bool {
	session := sessions.Default(c)
	expected, ok := session.Get("captcha_answer").(int)
	session.Delete("captcha_answer")
	session.Save()
	return ok && input != "" && utils.StringToInt(input) == expected
}

// fingerprint reuses the client's cookie or mints a fresh value. It is one of
// the throttle keys, so generation failure is an error, never a shared
// fallback value.
func (h *ReviewHandler) fingerprint(c *gin.Context) (value string, created bool, err error) {
	if fp, cookieErr := c.Cookie(fingerprintCookie); cookieErr == nil && fp != "" {
		return fp, false, nil
	}
	fp, err := utils.RandomToken(16)
	if err != nil {
		return "", false, fmt.Errorf("generate fingerprint: %w", err)
	}
	return fp, true, nil
}
