package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/events"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/storage"
	"github.com/Varun5711/clubhouse/internal/validation"
	"github.com/google/uuid"
)

// MailPublisher hands a mail job to whatever delivers it.
type MailPublisher interface {
	Publish(ctx context.Context, job *events.MailJob) error
}

type PasswordResetService struct {
	members   storage.MemberStore
	tokens    storage.ResetTokenStore
	mail      MailPublisher
	publicURL string
	ttl       time.Duration
	now       func() time.Time
	log       *logger.Logger
}

func NewPasswordResetService(members storage.MemberStore, tokens storage.ResetTokenStore, mail MailPublisher, publicURL string, ttl time.Duration, log *logger.Logger) *PasswordResetService {
	return &PasswordResetService{
		members:   members,
		tokens:    tokens,
		mail:      mail,
		publicURL: strings.TrimRight(publicURL, "/"),
		ttl:       ttl,
		now:       time.Now,
		log:       log.With("password-reset"),
	}
}

// Forgot mails a reset link. An unknown email succeeds silently.
func (s *PasswordResetService) Forgot(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := validation.ValidateEmail(email); err != nil {
		return invalidInput(err)
	}

	member, err := s.members.GetMemberByEmail(ctx, email)
	if err != nil {
		return storeError("get member", err)
	}
	if member == nil {
		s.log.Info("Password reset requested for unknown email")
		return nil
	}

	token, err := s.tokens.CreateResetToken(ctx, member.ID, s.now().Add(s.ttl))
	if err != nil {
		return storeError("create reset token", err)
	}

	job := &events.MailJob{
		Kind:      events.KindPasswordReset,
		To:        *member.Email,
		Name:      member.DisplayName(),
		Link:      s.resetLink(token.Token, *member.Email),
		ExpiresAt: token.ExpiresAt,
	}
	if err := s.mail.Publish(ctx, job); err != nil {
		return err
	}

	s.log.Info("Password reset mail queued for member %s", member.ID)
	return nil
}

// resetLink carries both values the reset form posts back.
func (s *PasswordResetService) resetLink(token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return s.publicURL + "/password-reset?" + q.Encode()
}

// Reset sets a new password with a reset token. Unknown, expired, reused or
// mismatched tokens all give ErrTokenExpired.
func (s *PasswordResetService) Reset(ctx context.Context, token, email, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return invalidInput(err)
	}
	if _, err := uuid.Parse(token); err != nil {
		return ErrTokenExpired
	}

	stored, err := s.tokens.GetResetToken(ctx, token)
	if err != nil {
		return storeError("get reset token", err)
	}
	if stored == nil || stored.Expired(s.now()) {
		return ErrTokenExpired
	}

	member, err := s.members.GetMemberByID(ctx, stored.MemberID)
	if err != nil {
		return storeError("get member", err)
	}
	if member == nil || member.Email == nil || !strings.EqualFold(*member.Email, strings.TrimSpace(email)) {
		s.log.Warn("Reset token used with a different email")
		return ErrTokenExpired
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	memberID, err := s.tokens.ConsumeResetToken(ctx, token, hash, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) || errors.Is(err, storage.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return storeError("consume reset token", err)
	}

	s.log.Info("Member %s reset password", memberID)
	return nil
}
