package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/clubhouse/internal/auth"
	"github.com/Varun5711/clubhouse/internal/enrichment"
	"github.com/Varun5711/clubhouse/internal/logger"
	"github.com/Varun5711/clubhouse/internal/models"
	"github.com/Varun5711/clubhouse/internal/storage"
	"github.com/Varun5711/clubhouse/internal/validation"
)

// Session is a freshly issued token and the member it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Member    *models.Member
}

type AuthService struct {
	members    storage.MemberStore
	jwtManager *auth.JWTManager
	denylist   *auth.Denylist
	log        *logger.Logger

	// dummyHash keeps unknown phones as slow as wrong passwords.
	dummyHash string
}

func NewAuthService(members storage.MemberStore, jwtManager *auth.JWTManager, denylist *auth.Denylist, log *logger.Logger) (*AuthService, error) {
	dummy, err := auth.HashPassword("clubhouse-login-timing")
	if err != nil {
		return nil, err
	}

	return &AuthService{
		members:    members,
		jwtManager: jwtManager,
		denylist:   denylist,
		log:        log.With("auth"),
		dummyHash:  dummy,
	}, nil
}

func (s *AuthService) TokenDuration() time.Duration {
	return s.jwtManager.TokenDuration()
}

// Login answers ErrNotFound for both an unknown phone and a wrong password.
func (s *AuthService) Login(ctx context.Context, phone, password, userAgent string) (*Session, error) {
	phone = validation.NormalizePhone(phone)
	if phone == "" || password == "" {
		return nil, invalidInput(errors.New("phone and password are required"))
	}

	member, err := s.members.GetMemberByPhone(ctx, phone)
	if err != nil {
		return nil, storeError("get member", err)
	}
	if member == nil {
		_ = auth.CheckPassword(s.dummyHash, password)
		s.log.Warn("Login failed: unknown phone")
		return nil, ErrNotFound
	}

	if err := auth.CheckPassword(member.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrMismatchedPassword) {
			s.log.Error("Stored hash of member %s is unusable: %v", member.ID, err)
		}
		s.log.Warn("Login failed: wrong password for member %s", member.ID)
		return nil, ErrNotFound
	}

	session, err := s.issue(member)
	if err != nil {
		return nil, err
	}

	ua := enrichment.ParseUserAgent(userAgent)
	s.log.Info("Member %s logged in from %s", member.ID, ua)
	return session, nil
}

func (s *AuthService) issue(member *models.Member) (*Session, error) {
	token, expiresAt, err := s.jwtManager.GenerateToken(member)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Member: member}, nil
}

// Verify checks the signature, expiry and revocation of a token.
func (s *AuthService) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		s.log.Debug("Token rejected: %v", err)
		return nil, ErrInvalidToken
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.log.Error("Denylist lookup failed: %v", err)
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Refresh issues a new token with the current flags of memberID.
func (s *AuthService) Refresh(ctx context.Context, claims *auth.Claims, memberID string) (*Session, error) {
	if memberID == "" {
		memberID = claims.MemberID()
	}
	if !ActorFromClaims(claims).CanAccess(memberID) {
		return nil, ErrForbidden
	}

	member, err := s.members.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, storeError("get member", err)
	}
	if member == nil {
		return nil, ErrNotFound
	}

	return s.issue(member)
}

func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return err
	}

	s.log.Info("Member %s logged out", claims.MemberID())
	return nil
}
