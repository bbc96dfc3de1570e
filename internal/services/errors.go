package services

import (
	"errors"
	"fmt"
	"strings"
)

// Expected, user-facing failures. Handlers map these onto HTTP statuses;
// anything else coming out of a service is treated as a storage failure and
// surfaced generically.
var (
	ErrNotFound                  = errors.New("review not found")
	ErrNotEditable               = errors.New("review is not awaiting changes")
	ErrUnauthorized              = errors.New("you cannot edit this review")
	ErrInvalidOrExpiredToken     = errors.New("invalid or expired edit token")
	ErrModerationMessageRequired = errors.New("a moderation message is required for this action")
)

// ValidationError reports a malformed field in a submission payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ContentBlockedError is returned when the scanner finds a blocking signal.
// Reasons holds only the blocking reason codes so the author knows what to
// remove; flag-only findings are never surfaced here.
type ContentBlockedError struct {
	Reasons []string
}

func (e *ContentBlockedError) Error() string {
	return fmt.Sprintf(
		"your review contains personal data that must be removed for privacy: %s. Please edit your comment and try again.",
		strings.Join(blockingHints(e.Reasons), ", "),
	)
}

// RateLimitError reports which rolling-window limit rejected the submission.
type RateLimitError struct {
	Scope string // ip, building, fingerprint
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("submission limit reached (%s), try again later", e.Scope)
}
