package handlers

import (
	"errors"
	"log"
	"net/http"

	"livedhere/internal/middleware"
	"livedhere/internal/models"
	"livedhere/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CurrentUser returns the session user loaded by middleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if u, exists := c.Get(middleware.CheckUserKey); exists {
		return u.(*models.User)
	}
	return nil
}

// CurrentActor translates the session user into the pipeline's actor shape.
func CurrentActor(c *gin.Context) services.Actor {
	user := CurrentUser(c)
	if user == nil {
		return services.Actor{}
	}
	id := user.ID
	return services.Actor{
		UserID:  &id,
		Email:   user.Email,
		IsAdmin: user.IsAdmin(),
	}
}

// RespondError maps pipeline errors onto HTTP responses. Expected failures
// carry a helpful message; anything unrecognized is a storage failure, logged
// with full context and surfaced generically.
func RespondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var blockedErr *services.ContentBlockedError
	var rateErr *services.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &blockedErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": blockedErr.Error(), "reasons": blockedErr.Reasons})
	case errors.As(err, &rateErr):
		c.Header("Retry-After", "3600")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": rateErr.Error()})
	case errors.Is(err, services.ErrModerationMessageRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotEditable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrInvalidOrExpiredToken):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
	}
}
