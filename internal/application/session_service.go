package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-session/internal/domain/entity"
	repo "github.com/oksasatya/go-user-session/internal/domain/repository"
	"github.com/oksasatya/go-user-session/pkg/helpers"
)

// Rotation failures. UserService collapses all of them to Unauthorized.
var (
	ErrMissingRefreshToken = errors.New("refresh token missing")
	ErrInvalidToken        = errors.New("refresh token invalid or expired")
	ErrUnknownIdentity     = errors.New("refresh token subject does not exist")
	ErrTokenReuseDetected  = errors.New("refresh token already rotated or never issued")
)

type TokenPair struct {
	AccessToken        string    `json:"access_token"`
	AccessTokenExpiry  time.Time `json:"access_token_expires_at"`
	RefreshToken       string    `json:"refresh_token"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expires_at"`
}

// SessionService owns the refresh token lifecycle of an identity: one stored
// refresh token at a time, replaced on every rotation and cleared on logout.
type SessionService struct {
	Repo   repo.UserRepository
	Tokens TokenIssuer
	Logger *logrus.Logger
}

func NewSessionService(r repo.UserRepository, tokens TokenIssuer, logger *logrus.Logger) *SessionService {
	return &SessionService{Repo: r, Tokens: tokens, Logger: logger}
}

func (s *SessionService) newPair(userID string) (TokenPair, error) {
	access, aexp, err := s.Tokens.Issue(userID, helpers.AccessToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, rexp, err := s.Tokens.Issue(userID, helpers.RefreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// IssueInitialSession starts a session for u, overwriting any stored refresh token.
func (s *SessionService) IssueInitialSession(ctx context.Context, u *entity.User) (TokenPair, error) {
	pair, err := s.newPair(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Repo.SaveRefreshToken(ctx, u.ID, &pair.RefreshToken); err != nil {
		return TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}
	u.RefreshToken = &pair.RefreshToken
	return pair, nil
}

// RotateSession exchanges the presented refresh token for a new pair.
// The presented token must equal the stored one; the replacement is persisted
// with a compare-and-swap so a concurrent rotation of the same token loses
// with ErrTokenReuseDetected instead of receiving an already superseded pair.
// The stored token is left untouched on every failure.
func (s *SessionService) RotateSession(ctx context.Context, presented string) (TokenPair, string, error) {
	if strings.TrimSpace(presented) == "" {
		return TokenPair{}, "", ErrMissingRefreshToken
	}

	claims, err := s.Tokens.Verify(presented, helpers.RefreshToken)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	u, err := s.Repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			if s.Logger != nil {
				s.Logger.WithField("user_id", claims.UserID).Warn("refresh token for unknown identity")
			}
			return TokenPair{}, "", ErrUnknownIdentity
		}
		return TokenPair{}, "", fmt.Errorf("load user: %w", err)
	}

	if !u.HasSession() || subtle.ConstantTimeCompare([]byte(presented), []byte(*u.RefreshToken)) != 1 {
		s.warnReuse(u.ID, "stored token mismatch")
		return TokenPair{}, "", ErrTokenReuseDetected
	}

	pair, err := s.newPair(u.ID)
	if err != nil {
		return TokenPair{}, "", err
	}
	swapped, err := s.Repo.SwapRefreshToken(ctx, u.ID, presented, pair.RefreshToken)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("persist rotated refresh token: %w", err)
	}
	if !swapped {
		s.warnReuse(u.ID, "concurrent rotation")
		return TokenPair{}, "", ErrTokenReuseDetected
	}
	sessionStats.Add(statRotations, 1)
	return pair, u.ID, nil
}

// TerminateSession clears the stored refresh token. Clearing an already
// cleared token succeeds.
func (s *SessionService) TerminateSession(ctx context.Context, userID string) error {
	if err := s.Repo.SaveRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUnknownIdentity
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (s *SessionService) warnReuse(userID, reason string) {
	sessionStats.Add(statReuseDetections, 1)
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": userID, "reason": reason}).Warn("refresh token reuse detected")
	}
}
