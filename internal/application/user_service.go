package application

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-session/internal/domain/entity"
	repo "github.com/oksasatya/go-user-session/internal/domain/repository"
	"github.com/oksasatya/go-user-session/pkg/apperror"
	"github.com/oksasatya/go-user-session/pkg/helpers"
	"github.com/oksasatya/go-user-session/pkg/validation"
)

const defaultSearchSize = 10

// UserService is the public surface for registration and sessions.
// Every error it returns is an *apperror.Error.
// Cache, Indexer and Notifier are optional.
type UserService struct {
	Sessions *SessionService
	Repo     repo.UserRepository
	Media    MediaUploader
	Cache    ProfileCache
	Indexer  UserIndexer
	Notifier Notifier
	Validate *validator.Validate
	Logger   *logrus.Logger
}

func NewUserService(sessions *SessionService, r repo.UserRepository, media MediaUploader, logger *logrus.Logger) *UserService {
	return &UserService{
		Sessions: sessions,
		Repo:     r,
		Media:    media,
		Validate: validation.New(),
		Logger:   logger,
	}
}

type RegisterInput struct {
	FullName string `json:"fullName" form:"fullName" validate:"notblank"`
	Username string `json:"username" form:"username" validate:"notblank"`
	Email    string `json:"email" form:"email" validate:"notblank"`
	Password string `json:"password" form:"password" validate:"pwd"`
}

func (in *RegisterInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

type LoginInput struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// identifier prefers username over email.
func (in LoginInput) identifier() string {
	if u := strings.TrimSpace(in.Username); u != "" {
		return strings.ToLower(u)
	}
	return strings.ToLower(strings.TrimSpace(in.Email))
}

type LoginResult struct {
	User   entity.UserProfile `json:"user"`
	Tokens TokenPair          `json:"tokens"`
}

// Register creates an identity. avatarPath and coverPath are local temporary
// files; both are removed before Register returns, whatever the outcome.
func (s *UserService) Register(ctx context.Context, in RegisterInput, avatarPath, coverPath string) (*entity.UserProfile, error) {
	discard := func() {
		s.Media.Discard(avatarPath)
		s.Media.Discard(coverPath)
	}

	in.normalize()
	if err := s.Validate.Struct(in); err != nil {
		discard()
		return nil, apperror.Validation("all fields are required", validation.ToDetails(err))
	}

	if _, err := s.Repo.FindByUsernameOrEmail(ctx, in.Username, in.Email); err == nil {
		discard()
		return nil, apperror.Conflict("user with email or username already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		discard()
		return nil, apperror.Internal("failed to check existing user", err)
	}

	if strings.TrimSpace(avatarPath) == "" {
		discard()
		return nil, apperror.MissingAsset("avatar file is required")
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		discard()
		if errors.Is(err, helpers.ErrPasswordTooLong) {
			return nil, apperror.Validation("password is too long", map[string]string{"password": "must be at most 72 bytes long"})
		}
		return nil, apperror.Internal("failed to hash password", err)
	}

	avatarURL, err := s.Media.Upload(ctx, avatarPath)
	if err != nil || avatarURL == "" {
		s.logger().WithError(err).WithField("username", in.Username).Warn("avatar upload failed")
		s.Media.Discard(coverPath)
		return nil, apperror.Wrap(apperror.KindMissingAsset, "avatar upload failed", err)
	}

	coverURL := ""
	if strings.TrimSpace(coverPath) != "" {
		if url, err := s.Media.Upload(ctx, coverPath); err != nil {
			s.logger().WithError(err).WithField("username", in.Username).Warn("cover image upload failed")
		} else {
			coverURL = url
		}
	}

	u := &entity.User{
		Username:      in.Username,
		Email:         in.Email,
		FullName:      in.FullName,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		s.removeUploads(ctx, avatarURL, coverURL)
		if errors.Is(err, repo.ErrDuplicateIdentity) {
			return nil, apperror.Conflict("user with email or username already exists")
		}
		return nil, apperror.Internal("failed to create user", err)
	}

	created, err := s.Repo.FindByID(ctx, u.ID)
	if err != nil {
		if derr := s.Repo.Delete(ctx, u.ID); derr != nil {
			s.logger().WithError(derr).WithField("user_id", u.ID).Error("roll back registration failed")
		}
		s.removeUploads(ctx, avatarURL, coverURL)
		return nil, apperror.Internal("something went wrong while registering the user", err)
	}
	profile := created.Profile()

	if s.Indexer != nil {
		if err := s.Indexer.IndexUser(ctx, profile); err != nil {
			s.logger().WithError(err).WithField("user_id", profile.ID).Warn("index user failed")
		}
	}
	if s.Notifier != nil {
		if err := s.Notifier.Registered(ctx, profile); err != nil {
			s.logger().WithError(err).WithField("user_id", profile.ID).Warn("enqueue welcome email failed")
		}
	}
	sessionStats.Add(statRegistrations, 1)
	return &profile, nil
}

// Login verifies credentials and starts a new session.
func (s *UserService) Login(ctx context.Context, in LoginInput, meta ClientMeta) (*LoginResult, error) {
	ident := in.identifier()
	if ident == "" {
		return nil, apperror.Validation("username or email is required", map[string]string{"username": "is required"})
	}
	if in.Password == "" {
		return nil, apperror.Validation("password is required", map[string]string{"password": "is required"})
	}

	u, err := s.Repo.FindByIdentifier(ctx, ident)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			sessionStats.Add(statLoginFailures, 1)
			return nil, apperror.NotFound("user does not exist")
		}
		return nil, apperror.Internal("failed to load user", err)
	}

	if !helpers.CompareHashAndPassword(u.PasswordHash, in.Password) {
		sessionStats.Add(statLoginFailures, 1)
		return nil, apperror.Unauthorized("invalid user credentials")
	}

	pair, err := s.Sessions.IssueInitialSession(ctx, u)
	if err != nil {
		return nil, apperror.Internal("something went wrong while generating tokens", err)
	}
	profile := u.Profile()

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, profile); err != nil {
			s.logger().WithError(err).WithField("user_id", u.ID).Warn("cache profile failed")
		}
	}
	if s.Notifier != nil {
		if err := s.Notifier.LoggedIn(ctx, profile, meta); err != nil {
			s.logger().WithError(err).WithField("user_id", u.ID).Warn("enqueue login notification failed")
		}
	}
	sessionStats.Add(statLogins, 1)
	return &LoginResult{User: profile, Tokens: pair}, nil
}

// Logout terminates the session of userID. Repeated calls succeed.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.Sessions.TerminateSession(ctx, userID); err != nil {
		if errors.Is(err, ErrUnknownIdentity) {
			return apperror.Unauthorized("unauthorized request")
		}
		return apperror.Internal("failed to logout", err)
	}
	if s.Cache != nil {
		if err := s.Cache.Delete(ctx, userID); err != nil {
			s.logger().WithError(err).WithField("user_id", userID).Warn("evict cached profile failed")
		}
	}
	sessionStats.Add(statLogouts, 1)
	return nil
}

// Refresh rotates the presented refresh token. Missing, invalid, unknown
// and reused tokens all surface as the same Unauthorized error.
func (s *UserService) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	pair, _, err := s.Sessions.RotateSession(ctx, presented)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingRefreshToken),
			errors.Is(err, ErrInvalidToken),
			errors.Is(err, ErrUnknownIdentity),
			errors.Is(err, ErrTokenReuseDetected):
			return TokenPair{}, apperror.Unauthorized("invalid refresh token")
		}
		return TokenPair{}, apperror.Internal("failed to refresh session", err)
	}
	return pair, nil
}

// GetProfile reads through the profile cache when one is configured.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	if s.Cache != nil {
		p, ok, err := s.Cache.Get(ctx, userID)
		if err != nil {
			s.logger().WithError(err).WithField("user_id", userID).Warn("read cached profile failed")
		} else if ok {
			return p, nil
		}
	}

	u, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal("failed to load user", err)
	}
	profile := u.Profile()

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, profile); err != nil {
			s.logger().WithError(err).WithField("user_id", userID).Warn("cache profile failed")
		}
	}
	return &profile, nil
}

// SearchUsers queries the user directory. size <= 0 uses the default.
// Without an indexer the directory is empty.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]entity.UserProfile, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.Validation("query is required", map[string]string{"q": "is required"})
	}
	if s.Indexer == nil {
		return []entity.UserProfile{}, nil
	}
	if size <= 0 || size > 100 {
		size = defaultSearchSize
	}
	res, err := s.Indexer.SearchUsers(ctx, q, size)
	if err != nil {
		return nil, apperror.Internal("search failed", err)
	}
	return res, nil
}

// removeUploads deletes objects uploaded for a registration that did not complete.
func (s *UserService) removeUploads(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.Media.Remove(ctx, url); err != nil {
			s.logger().WithError(err).WithField("url", url).Warn("remove orphaned upload failed")
		}
	}
}

func (s *UserService) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}
