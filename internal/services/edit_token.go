package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"livedhere/internal/config"
	"livedhere/internal/models"
	"livedhere/internal/utils"

	"github.com/google/uuid"
)

// Actor is the resolved identity of whoever is calling the pipeline. The
// pipeline never authenticates credentials; the surrounding app resolves the
// session and hands us this.
type Actor struct {
	UserID  *uuid.UUID
	Email   string
	IsAdmin bool
}

func (a Actor) Anonymous() bool {
	return a.UserID == nil
}

// IssuedToken is the one-time result of minting an anonymous edit credential.
// Raw is returned to the caller exactly once; only Hash is ever persisted.
type IssuedToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// EditTokenService issues and verifies the bearer tokens that let anonymous
// authors revise their own CHANGES_REQUESTED review. Tokens are stored as
// HMAC-SHA256 over a server-side secret, never in recoverable form.
type EditTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewEditTokenService(cfg *config.Config) *EditTokenService {
	return &EditTokenService{
		secret: []byte(cfg.EditTokenSecret),
		ttl:    time.Duration(cfg.EditTokenTTLDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

// Issue mints a fresh high-entropy token.
func (s *EditTokenService) Issue() (*IssuedToken, error) {
	raw, err := utils.RandomToken(32)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{
		Raw:       raw,
		Hash:      s.HashToken(raw),
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

// HashToken derives the stored form of a token.
func (s *EditTokenService) HashToken(raw string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authorize decides whether the actor may revise the review. Pure predicate
// over current state plus presented credentials; the two paths are mutually
// exclusive by construction of EditCredential.
func (s *EditTokenService) Authorize(review *models.Review, actor Actor, presented string) error {
	if review.Status != models.StatusChangesRequested {
		return ErrNotEditable
	}

	switch cred := review.EditCredential().(type) {
	case models.AccountOwner:
		if actor.UserID != nil && *actor.UserID == cred.UserID {
			return nil
		}
		return ErrUnauthorized
	case models.AnonymousToken:
		if presented == "" {
			return ErrInvalidOrExpiredToken
		}
		if !hmac.Equal([]byte(s.HashToken(presented)), []byte(cred.Hash)) {
			return ErrInvalidOrExpiredToken
		}
		if !s.now().Before(cred.ExpiresAt) {
			return ErrInvalidOrExpiredToken
		}
		return nil
	}
	return ErrUnauthorized
}
