package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"livedhere/internal/models"

	"gorm.io/gorm"
)

func newReviewService(t *testing.T) (*ReviewService, *gorm.DB, models.Building) {
	t.Helper()

	gdb := newTestDB(t)
	svc := NewReviewService(gdb, testConfig(), nil, nil)
	building := seedBuilding(t, gdb)
	return svc, gdb, building
}

func anonymousSubmit(buildingID uint) SubmitInput {
	to := 2023
	return SubmitInput{
		BuildingID: buildingID,
		Ratings:    goodRatings(),
		Comment:    "Bright rooms and a calm street, would live here again.",
		Stay: StayFacts{
			LivedFromYear: 2020,
			LivedToYear:   &to,
		},
		Author:        Actor{},
		IP:            "10.1.0.1",
		Fingerprint:   "fp-test",
		CaptchaPassed: true,
	}
}

func adminActor(t *testing.T, gdb *gorm.DB) Actor {
	t.Helper()

	admin := seedUser(t, gdb, "admin@example.com", "admin")
	id := admin.ID
	return Actor{UserID: &id, Email: admin.Email, IsAdmin: true}
}

func auditStatus(t *testing.T, entry models.ModerationAuditEntry) string {
	t.Helper()

	var after struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(entry.AfterJSON), &after); err != nil {
		t.Fatalf("failed to parse after snapshot: %v", err)
	}
	return after.Status
}

func latestAudit(t *testing.T, gdb *gorm.DB, reviewID uint) models.ModerationAuditEntry {
	t.Helper()

	var entry models.ModerationAuditEntry
	if err := gdb.Where("review_id = ?", reviewID).Order("id DESC").First(&entry).Error; err != nil {
		t.Fatalf("failed to load audit entry: %v", err)
	}
	return entry
}

func auditCount(t *testing.T, gdb *gorm.DB, reviewID uint) int64 {
	t.Helper()

	var count int64
	gdb.Model(&models.ModerationAuditEntry{}).Where("review_id = ?", reviewID).Count(&count)
	return count
}

func TestSubmitAnonymous(t *testing.T) {
	svc, gdb, building := newReviewService(t)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(result.TrackingCode) != trackingCodeLength {
		t.Errorf("expected %d-char tracking code, got %q", trackingCodeLength, result.TrackingCode)
	}
	if result.EditToken == "" {
		t.Error("anonymous submission must return an edit token")
	}

	var review models.Review
	if err := gdb.First(&review, result.ReviewID).Error; err != nil {
		t.Fatalf("review not persisted: %v", err)
	}
	if review.Status != models.StatusPending {
		t.Errorf("expected PENDING, got %s", review.Status)
	}
	if review.AuthorType != models.AuthorTypeAnonymous || review.AuthorBadge != models.BadgeNone {
		t.Errorf("unexpected authorship: %s/%s", review.AuthorType, review.AuthorBadge)
	}
	if review.EditTokenHash == nil || review.EditTokenExpiresAt == nil {
		t.Error("anonymous review must carry a hashed edit credential")
	}
	if *review.EditTokenHash == result.EditToken {
		t.Error("raw token must never be persisted")
	}
	if review.OverallScoreExact != 3.70 || review.OverallScoreDisplay != 3.7 {
		t.Errorf("unexpected scores: %v / %v", review.OverallScoreExact, review.OverallScoreDisplay)
	}

	if n := auditCount(t, gdb, review.ID); n != 1 {
		t.Fatalf("expected 1 audit entry, got %d", n)
	}
	entry := latestAudit(t, gdb, review.ID)
	if entry.Action != models.AuditActionCreated || entry.Actor != models.AuditActorAuthor {
		t.Errorf("unexpected audit entry: %s by %s", entry.Action, entry.Actor)
	}
	if auditStatus(t, entry) != models.StatusPending {
		t.Error("after snapshot must show PENDING")
	}
}

func TestSubmitAccountAuthor(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	author := seedUser(t, gdb, "resident@example.com", "user")
	authorID := author.ID

	input := anonymousSubmit(building.ID)
	input.Author = Actor{UserID: &authorID, Email: author.Email}
	input.CaptchaPassed = false // accounts skip the captcha

	result, err := svc.Submit(input)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.EditToken != "" {
		t.Error("account authors must not receive an edit token")
	}

	var review models.Review
	gdb.First(&review, result.ReviewID)
	if review.AuthorUserID == nil || *review.AuthorUserID != authorID {
		t.Error("author id not recorded")
	}
	if review.AuthorBadge != models.BadgeVerifiedAccount {
		t.Errorf("expected verified badge, got %s", review.AuthorBadge)
	}
	if review.EditTokenHash != nil {
		t.Error("edit token hash must be null for account authors")
	}
}

func TestSubmitBlockedComment(t *testing.T) {
	svc, gdb, building := newReviewService(t)

	input := anonymousSubmit(building.ID)
	input.Comment = "great flat, reach me at a@b.com"

	_, err := svc.Submit(input)
	var blockedErr *ContentBlockedError
	if !errors.As(err, &blockedErr) {
		t.Fatalf("expected ContentBlockedError, got %v", err)
	}

	var count int64
	gdb.Model(&models.Review{}).Count(&count)
	if count != 0 {
		t.Errorf("blocked submission must not create a review, found %d", count)
	}
}

func TestBlockedSubmissionConsumesNoThrottleBudget(t *testing.T) {
	svc, gdb, building := newReviewService(t)

	// Three blocked attempts from the same fingerprint, at the limit.
	for i := 0; i < 3; i++ {
		input := anonymousSubmit(building.ID)
		input.Comment = "reach me at a@b.com"
		_, err := svc.Submit(input)
		var blockedErr *ContentBlockedError
		if !errors.As(err, &blockedErr) {
			t.Fatalf("attempt %d: expected ContentBlockedError, got %v", i+1, err)
		}
	}

	var events int64
	gdb.Table("submission_events").Count(&events)
	if events != 0 {
		t.Errorf("blocked submissions must not record events, found %d", events)
	}

	// The corrected comment still goes through.
	if _, err := svc.Submit(anonymousSubmit(building.ID)); err != nil {
		t.Fatalf("clean submission after blocked attempts should pass: %v", err)
	}
}

func TestSubmitCommentLengthLimit(t *testing.T) {
	svc, _, building := newReviewService(t)

	input := anonymousSubmit(building.ID)
	input.Comment = strings.Repeat("a", maxCommentLength)
	if _, err := svc.Submit(input); err != nil {
		t.Fatalf("comment at the limit should pass: %v", err)
	}

	input = anonymousSubmit(building.ID)
	input.Comment = strings.Repeat("a", maxCommentLength+1)
	_, err := svc.Submit(input)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "comment" {
		t.Fatalf("expected comment validation error, got %v", err)
	}
}

func TestSubmitFlaggedNotBlocked(t *testing.T) {
	svc, gdb, building := newReviewService(t)

	input := anonymousSubmit(building.ID)
	input.Comment = "the upstairs neighbour is a complete idiot but the flat is fine"

	result, err := svc.Submit(input)
	if err != nil {
		t.Fatalf("flag-only content must not block: %v", err)
	}

	var review models.Review
	gdb.First(&review, result.ReviewID)
	if !review.PiiFlagged {
		t.Error("expected pii_flagged=true")
	}
	if len(review.PiiReasons) != 1 || review.PiiReasons[0] != ReasonHarassment {
		t.Errorf("expected [harassment], got %v", review.PiiReasons)
	}
}

func TestSubmitCaptchaRequired(t *testing.T) {
	svc, _, building := newReviewService(t)

	input := anonymousSubmit(building.ID)
	input.CaptchaPassed = false

	_, err := svc.Submit(input)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "captcha" {
		t.Fatalf("expected captcha validation error, got %v", err)
	}
}

func TestSubmitUnknownBuilding(t *testing.T) {
	svc, _, _ := newReviewService(t)

	input := anonymousSubmit(9999)
	if _, err := svc.Submit(input); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitFingerprintThrottled(t *testing.T) {
	svc, _, building := newReviewService(t)

	for i := 0; i < 3; i++ {
		input := anonymousSubmit(building.ID)
		input.IP = fmt.Sprintf("10.1.0.%d", i+1)
		if _, err := svc.Submit(input); err != nil {
			t.Fatalf("submission %d should pass: %v", i+1, err)
		}
	}

	input := anonymousSubmit(building.ID)
	input.IP = "10.1.0.50"
	_, err := svc.Submit(input)
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) || rateErr.Scope != "fingerprint" {
		t.Fatalf("expected fingerprint rate limit, got %v", err)
	}
}

func TestModerateApprove(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	moderator := adminActor(t, gdb)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// No message required for APPROVE.
	if err := svc.Moderate(result.ReviewID, moderator, models.AuditActionApprove, "", nil); err != nil {
		t.Fatalf("Moderate failed: %v", err)
	}

	var review models.Review
	gdb.First(&review, result.ReviewID)
	if review.Status != models.StatusApproved {
		t.Errorf("expected APPROVED, got %s", review.Status)
	}
	if review.ApprovedAt == nil {
		t.Error("approved_at must be set")
	}
	if review.LastModerationAction != models.AuditActionApprove {
		t.Errorf("unexpected last action %s", review.LastModerationAction)
	}
	if review.ModeratedByUserID == nil || *review.ModeratedByUserID != *moderator.UserID {
		t.Error("moderator id not recorded")
	}

	if n := auditCount(t, gdb, review.ID); n != 2 {
		t.Fatalf("expected 2 audit entries, got %d", n)
	}
	entry := latestAudit(t, gdb, review.ID)
	if entry.Action != models.AuditActionApprove {
		t.Errorf("expected APPROVE entry, got %s", entry.Action)
	}
	if entry.Actor != moderator.UserID.String() {
		t.Errorf("expected moderator actor, got %s", entry.Actor)
	}
	if auditStatus(t, entry) != models.StatusApproved {
		t.Error("after snapshot must show APPROVED")
	}
}

func TestModerateMessageGuard(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	moderator := adminActor(t, gdb)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	for _, action := range []string{models.AuditActionReject, models.AuditActionRequestChanges} {
		for _, message := range []string{"", "   "} {
			err := svc.Moderate(result.ReviewID, moderator, action, message, nil)
			if !errors.Is(err, ErrModerationMessageRequired) {
				t.Errorf("%s with message %q: expected ErrModerationMessageRequired, got %v", action, message, err)
			}
		}
	}

	// The guard must leave no partial state behind.
	if n := auditCount(t, gdb, result.ReviewID); n != 1 {
		t.Errorf("expected only the CREATED entry, got %d", n)
	}
}

func TestRequestChangesAndResubmit(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	moderator := adminActor(t, gdb)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := svc.Moderate(result.ReviewID, moderator, models.AuditActionRequestChanges, "please remove the street number", nil); err != nil {
		t.Fatalf("Moderate failed: %v", err)
	}

	status, err := svc.CheckStatus(result.TrackingCode)
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if status.Status != models.StatusChangesRequested || status.ModerationMessage == "" {
		t.Fatalf("unexpected status %+v", status)
	}

	ratings := goodRatings()
	ratings.Parking = 5
	err = svc.Resubmit(ResubmitInput{
		TrackingCode: result.TrackingCode,
		EditToken:    result.EditToken,
		Ratings:      ratings,
		Comment:      "Quiet building with easy parking nearby.",
		Stay:         StayFacts{LivedFromYear: 2020},
	})
	if err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}

	var review models.Review
	gdb.First(&review, result.ReviewID)
	if review.Status != models.StatusPending {
		t.Errorf("expected PENDING after resubmit, got %s", review.Status)
	}
	if review.ModerationMessage != "" {
		t.Error("moderation message must be cleared on resubmit")
	}
	if review.Ratings.Parking != 5 {
		t.Error("ratings not updated")
	}
	if review.OverallScoreExact != 3.90 {
		t.Errorf("score not recomputed, got %v", review.OverallScoreExact)
	}

	if n := auditCount(t, gdb, review.ID); n != 3 {
		t.Fatalf("expected 3 audit entries, got %d", n)
	}
	entry := latestAudit(t, gdb, review.ID)
	if entry.Action != models.AuditActionResubmitted || entry.Actor != models.AuditActorAuthor {
		t.Errorf("unexpected audit entry: %s by %s", entry.Action, entry.Actor)
	}
}

func TestResubmitTokenFailures(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	moderator := adminActor(t, gdb)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	resubmit := func(token string) error {
		return svc.Resubmit(ResubmitInput{
			TrackingCode: result.TrackingCode,
			EditToken:    token,
			Ratings:      goodRatings(),
			Comment:      "updated",
			Stay:         StayFacts{LivedFromYear: 2020},
		})
	}

	// Not in CHANGES_REQUESTED yet.
	if err := resubmit(result.EditToken); !errors.Is(err, ErrNotEditable) {
		t.Errorf("expected ErrNotEditable, got %v", err)
	}

	if err := svc.Moderate(result.ReviewID, moderator, models.AuditActionRequestChanges, "too vague", nil); err != nil {
		t.Fatalf("Moderate failed: %v", err)
	}

	if err := resubmit(""); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Errorf("missing token: expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if err := resubmit("bogus"); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Errorf("wrong token: expected ErrInvalidOrExpiredToken, got %v", err)
	}

	expired := time.Now().Add(-time.Hour)
	gdb.Model(&models.Review{}).Where("id = ?", result.ReviewID).Update("edit_token_expires_at", expired)
	if err := resubmit(result.EditToken); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Errorf("expired token: expected ErrInvalidOrExpiredToken, got %v", err)
	}

	if err := svc.Resubmit(ResubmitInput{TrackingCode: "NOSUCHCODE12", EditToken: "x", Ratings: goodRatings(), Stay: StayFacts{LivedFromYear: 2020}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown code: expected ErrNotFound, got %v", err)
	}
}

func TestModeratePermissiveTransitions(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	moderator := adminActor(t, gdb)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The observed behavior allows any action from any status, including
	// APPROVE on an already removed review.
	if err := svc.Moderate(result.ReviewID, moderator, models.AuditActionRemove, "", nil); err != nil {
		t.Fatalf("REMOVE failed: %v", err)
	}
	if err := svc.Moderate(result.ReviewID, moderator, models.AuditActionApprove, "", nil); err != nil {
		t.Fatalf("APPROVE after REMOVE failed: %v", err)
	}

	var review models.Review
	gdb.First(&review, result.ReviewID)
	if review.Status != models.StatusApproved {
		t.Errorf("expected APPROVED, got %s", review.Status)
	}
	if review.RemovedAt == nil || review.ApprovedAt == nil {
		t.Error("both timestamps should be recorded")
	}
	if n := auditCount(t, gdb, review.ID); n != 3 {
		t.Errorf("expected 3 audit entries, got %d", n)
	}
}

func TestModerateRedactedComment(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	moderator := adminActor(t, gdb)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	redacted := "Bright rooms and a calm street. [identifying detail removed]"
	if err := svc.Moderate(result.ReviewID, moderator, models.AuditActionApprove, "", &redacted); err != nil {
		t.Fatalf("Moderate failed: %v", err)
	}

	var review models.Review
	gdb.First(&review, result.ReviewID)
	if review.Comment != redacted {
		t.Errorf("redacted comment not applied: %q", review.Comment)
	}
}

func TestModerateGuards(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	moderator := adminActor(t, gdb)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := svc.Moderate(9999, moderator, models.AuditActionApprove, "", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown review: expected ErrNotFound, got %v", err)
	}
	if err := svc.Moderate(result.ReviewID, Actor{}, models.AuditActionApprove, "", nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous moderator: expected ErrUnauthorized, got %v", err)
	}

	var validationErr *ValidationError
	if err := svc.Moderate(result.ReviewID, moderator, "ESCALATE", "", nil); !errors.As(err, &validationErr) {
		t.Errorf("unknown action: expected ValidationError, got %v", err)
	}
}

func TestCheckStatusUnknownCode(t *testing.T) {
	svc, _, _ := newReviewService(t)

	if _, err := svc.CheckStatus("NOSUCHCODE12"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEveryTransitionWritesOneAuditEntry(t *testing.T) {
	svc, gdb, building := newReviewService(t)
	moderator := adminActor(t, gdb)

	result, err := svc.Submit(anonymousSubmit(building.ID))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	steps := []struct {
		action  string
		message string
		status  string
	}{
		{models.AuditActionRequestChanges, "tone it down", models.StatusChangesRequested},
		{models.AuditActionReject, "still not ok", models.StatusRejected},
		{models.AuditActionApprove, "", models.StatusApproved},
		{models.AuditActionRemove, "", models.StatusRemoved},
	}

	expected := auditCount(t, gdb, result.ReviewID)
	for _, step := range steps {
		if err := svc.Moderate(result.ReviewID, moderator, step.action, step.message, nil); err != nil {
			t.Fatalf("%s failed: %v", step.action, err)
		}
		expected++
		if n := auditCount(t, gdb, result.ReviewID); n != expected {
			t.Fatalf("%s: expected %d audit entries, got %d", step.action, expected, n)
		}
		entry := latestAudit(t, gdb, result.ReviewID)
		if auditStatus(t, entry) != step.status {
			t.Errorf("%s: after snapshot shows %s, review should be %s", step.action, auditStatus(t, entry), step.status)
		}

		var review models.Review
		gdb.First(&review, result.ReviewID)
		if review.Status != step.status {
			t.Errorf("%s: expected %s, got %s", step.action, step.status, review.Status)
		}
	}
}
