package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"livedhere/internal/config"
	"livedhere/internal/models"
	"livedhere/internal/utils"

	"gorm.io/gorm"
)

const (
	maxCommentLength   = 1500
	trackingCodeLength = 12
	minLivedYear       = 1900
)

// ReviewService owns the review lifecycle: submission, author resubmission,
// moderation and status lookup. Every transition and the audit entry that
// documents it are written in one transaction.
type ReviewService struct {
	db       *gorm.DB
	scanner  CommentScanner
	throttle *ThrottleService
	tokens   *EditTokenService
	mail     *MailService
	stats    *BuildingStatsService
	now      func() time.Time
}

func NewReviewService(gdb *gorm.DB, cfg *config.Config, mail *MailService, stats *BuildingStatsService) *ReviewService {
	return &ReviewService{
		db:       gdb,
		scanner:  NewKeywordScanner(),
		throttle: NewThrottleService(gdb, cfg),
		tokens:   NewEditTokenService(cfg),
		mail:     mail,
		stats:    stats,
		now:      time.Now,
	}
}

type StayFacts struct {
	LivedFromYear       int
	LivedToYear         *int // nil while the stay is ongoing
	LivedDurationMonths int
}

type SubmitInput struct {
	BuildingID    uint
	Ratings       models.Ratings
	Comment       string
	LanguageTag   string
	Stay          StayFacts
	Author        Actor
	IP            string
	Fingerprint   string
	CaptchaPassed bool
}

// SubmitResult carries the tracking code every submitter gets and, for
// anonymous authors only, the raw edit token. The token is never recoverable
// after this response.
type SubmitResult struct {
	ReviewID     uint
	TrackingCode string
	EditToken    string
}

// Submit runs a new review through the pipeline: validation first, then one
// transaction in which the throttle and scanner verdicts settle and the review
// is created with its CREATED audit entry. A rejected submission rolls the
// whole transaction back and leaves no event or review row behind.
func (s *ReviewService) Submit(in SubmitInput) (*SubmitResult, error) {
	if in.Author.Anonymous() && !in.CaptchaPassed {
		return nil, &ValidationError{Field: "captcha", Message: "captcha verification failed"}
	}

	var building models.Building
	if err := s.db.First(&building, in.BuildingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load building: %w", err)
	}

	score, err := s.validate(in.Ratings, in.Comment, in.Stay)
	if err != nil {
		return nil, err
	}

	scan := s.scanner.Scan(in.Comment)

	trackingCode, err := utils.TrackingCode(trackingCodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate tracking code: %w", err)
	}

	languageTag := in.LanguageTag
	if languageTag == "" {
		languageTag = "pt"
	}

	review := models.Review{
		BuildingID:          in.BuildingID,
		Status:              models.StatusPending,
		TrackingCode:        trackingCode,
		LanguageTag:         languageTag,
		LivedFromYear:       in.Stay.LivedFromYear,
		LivedToYear:         in.Stay.LivedToYear,
		LivedDurationMonths: s.durationMonths(in.Stay),
		Ratings:             in.Ratings,
		OverallScoreExact:   score.Exact,
		OverallScoreDisplay: score.Display,
		Comment:             in.Comment,
		PiiFlagged:          scan.Flagged,
		PiiReasons:          models.StringList(scan.Reasons),
		SubmitIP:            in.IP,
		SubmitFingerprint:   in.Fingerprint,
	}

	rawToken := ""
	if in.Author.Anonymous() {
		issued, err := s.tokens.Issue()
		if err != nil {
			return nil, fmt.Errorf("issue edit token: %w", err)
		}
		rawToken = issued.Raw
		review.AuthorType = models.AuthorTypeAnonymous
		review.AuthorBadge = models.BadgeNone
		review.EditTokenHash = &issued.Hash
		review.EditTokenExpiresAt = &issued.ExpiresAt
	} else {
		review.AuthorType = models.AuthorTypeUser
		review.AuthorBadge = models.BadgeVerifiedAccount
		review.AuthorUserID = in.Author.UserID
	}

	// The throttle verdict comes first so a submitter over the limit sees 429
	// even when the comment would also block; a block then rolls back the
	// throttle event along with everything else.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.throttle.checkAndRecord(tx, in.IP, in.Fingerprint, in.BuildingID); err != nil {
			return err
		}
		if scan.Blocked {
			return &ContentBlockedError{Reasons: scan.BlockedOnly()}
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		return tx.Create(&models.ModerationAuditEntry{
			ReviewID:   review.ID,
			Actor:      models.AuditActorAuthor,
			Action:     models.AuditActionCreated,
			BeforeJSON: "null",
			AfterJSON:  snapshot(&review),
		}).Error
	})
	if err != nil {
		var rateErr *RateLimitError
		var blockedErr *ContentBlockedError
		if errors.As(err, &rateErr) || errors.As(err, &blockedErr) {
			return nil, err
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	if s.mail != nil && !in.Author.Anonymous() && in.Author.Email != "" {
		s.mail.SendReviewReceived(in.Author.Email, trackingCode)
	}

	return &SubmitResult{
		ReviewID:     review.ID,
		TrackingCode: trackingCode,
		EditToken:    rawToken,
	}, nil
}

type ResubmitInput struct {
	TrackingCode string
	EditToken    string
	Actor        Actor
	Ratings      models.Ratings
	Comment      string
	Stay         StayFacts
}

// Resubmit lets the author revise a CHANGES_REQUESTED review. Authorization
// first, then the same scanner/score path as Submit; the review goes back to
// PENDING with its moderation message cleared.
func (s *ReviewService) Resubmit(in ResubmitInput) error {
	var review models.Review
	if err := s.db.Where("tracking_code = ?", in.TrackingCode).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load review: %w", err)
	}

	if err := s.tokens.Authorize(&review, in.Actor, in.EditToken); err != nil {
		return err
	}

	score, err := s.validate(in.Ratings, in.Comment, in.Stay)
	if err != nil {
		return err
	}

	scan := s.scanner.Scan(in.Comment)
	if scan.Blocked {
		return &ContentBlockedError{Reasons: scan.BlockedOnly()}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		before := snapshot(&review)

		review.Ratings = in.Ratings
		review.Comment = in.Comment
		review.LivedFromYear = in.Stay.LivedFromYear
		review.LivedToYear = in.Stay.LivedToYear
		review.LivedDurationMonths = s.durationMonths(in.Stay)
		review.OverallScoreExact = score.Exact
		review.OverallScoreDisplay = score.Display
		review.PiiFlagged = scan.Flagged
		review.PiiReasons = models.StringList(scan.Reasons)
		review.ModerationMessage = ""
		review.Status = models.StatusPending

		if err := tx.Save(&review).Error; err != nil {
			return err
		}
		return tx.Create(&models.ModerationAuditEntry{
			ReviewID:   review.ID,
			Actor:      models.AuditActorAuthor,
			Action:     models.AuditActionResubmitted,
			BeforeJSON: before,
			AfterJSON:  snapshot(&review),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("resubmit review: %w", err)
	}
	return nil
}

var statusForAction = map[string]string{
	models.AuditActionApprove:        models.StatusApproved,
	models.AuditActionReject:         models.StatusRejected,
	models.AuditActionRequestChanges: models.StatusChangesRequested,
	models.AuditActionRemove:         models.StatusRemoved,
}

// Moderate applies a moderator action. Any action is allowed from any prior
// status; REJECT and REQUEST_CHANGES must carry a message. A redacted
// replacement comment, when given, lands in the same transaction.
func (s *ReviewService) Moderate(reviewID uint, moderator Actor, action, message string, redactedComment *string) error {
	target, ok := statusForAction[action]
	if !ok {
		return &ValidationError{Field: "action", Message: "unknown moderation action"}
	}
	if moderator.UserID == nil || !moderator.IsAdmin {
		return ErrUnauthorized
	}
	if action == models.AuditActionReject || action == models.AuditActionRequestChanges {
		if strings.TrimSpace(message) == "" {
			return ErrModerationMessageRequired
		}
	}

	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", reviewID).First(&review).Error; err != nil {
			return err
		}

		before := snapshot(&review)
		now := s.now()

		review.Status = target
		review.ModerationMessage = message
		review.LastModerationAction = action
		review.ModeratedByUserID = moderator.UserID
		if action == models.AuditActionApprove {
			review.ApprovedAt = &now
		}
		if action == models.AuditActionRemove {
			review.RemovedAt = &now
		}
		if redactedComment != nil {
			review.Comment = *redactedComment
		}

		if err := tx.Save(&review).Error; err != nil {
			return err
		}
		return tx.Create(&models.ModerationAuditEntry{
			ReviewID:   review.ID,
			Actor:      moderator.UserID.String(),
			Action:     action,
			Message:    message,
			BeforeJSON: before,
			AfterJSON:  snapshot(&review),
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("moderate review: %w", err)
	}

	s.notifyAuthor(&review)
	if s.stats != nil {
		s.stats.ScheduleUpdate(review.BuildingID)
	}
	return nil
}

type StatusResult struct {
	TrackingCode      string    `json:"tracking_code"`
	Status            string    `json:"status"`
	ModerationMessage string    `json:"moderation_message"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CheckStatus is the anonymous-friendly lookup by tracking code.
func (s *ReviewService) CheckStatus(trackingCode string) (*StatusResult, error) {
	var review models.Review
	if err := s.db.Where("tracking_code = ?", trackingCode).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load review: %w", err)
	}
	return &StatusResult{
		TrackingCode:      review.TrackingCode,
		Status:            review.Status,
		ModerationMessage: review.ModerationMessage,
		UpdatedAt:         review.UpdatedAt,
	}, nil
}

func (s *ReviewService) validate(ratings models.Ratings, comment string, stay StayFacts) (Score, error) {
	score, err := AggregateScore(ratings)
	if err != nil {
		return Score{}, err
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return Score{}, &ValidationError{Field: "comment", Message: fmt.Sprintf("must be at most %d characters", maxCommentLength)}
	}

	currentYear := s.now().Year()
	if stay.LivedFromYear < minLivedYear || stay.LivedFromYear > currentYear {
		return Score{}, &ValidationError{Field: "lived_from_year", Message: "outside the plausible range"}
	}
	if stay.LivedToYear != nil {
		if *stay.LivedToYear < stay.LivedFromYear || *stay.LivedToYear > currentYear {
			return Score{}, &ValidationError{Field: "lived_to_year", Message: "must fall between the move-in year and now"}
		}
	}
	return score, nil
}

// durationMonths keeps a caller-supplied duration, otherwise derives a floor
// of one month from the stay years.
func (s *ReviewService) durationMonths(stay StayFacts) int {
	if stay.LivedDurationMonths > 0 {
		return stay.LivedDurationMonths
	}
	to := s.now().Year()
	if stay.LivedToYear != nil {
		to = *stay.LivedToYear
	}
	months := (to - stay.LivedFromYear) * 12
	if months < 1 {
		months = 1
	}
	return months
}

func (s *ReviewService) notifyAuthor(review *models.Review) {
	if s.mail == nil || review.AuthorUserID == nil {
		return
	}
	var author models.User
	if err := s.db.First(&author, "id = ?", *review.AuthorUserID).Error; err != nil {
		log.Printf("failed to load author for review %d notification: %v", review.ID, err)
		return
	}
	s.mail.SendModerationUpdate(author.Email, review.TrackingCode, review.Status, review.ModerationMessage)
}

// snapshot serializes the review row for the audit trail. Credential hashes
// and submitter network identifiers are excluded by the model's JSON tags.
func snapshot(review *models.Review) string {
	b, err := json.Marshal(review)
	if err != nil {
		log.Printf("failed to snapshot review %d: %v", review.ID, err)
		return "null"
	}
	return string(b)
}
