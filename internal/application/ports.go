package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-user-session/internal/domain/entity"
	"github.com/oksasatya/go-user-session/pkg/helpers"
)

// TokenIssuer signs and verifies access/refresh tokens.
type TokenIssuer interface {
	Issue(userID string, kind helpers.TokenKind) (string, time.Time, error)
	Verify(token string, kind helpers.TokenKind) (*helpers.Claims, error)
}

// MediaUploader stores profile images from local temporary files.
// Upload removes the local file whether or not the upload succeeds.
// Discard removes a local file that will not be uploaded; empty paths are ignored.
// Remove deletes an uploaded object by the URL Upload returned; empty URLs are ignored.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Discard(localPath string)
	Remove(ctx context.Context, url string) error
}

// ProfileCache is a read-through cache of user projections.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (*entity.UserProfile, bool, error)
	Set(ctx context.Context, p entity.UserProfile) error
	Delete(ctx context.Context, userID string) error
}

// UserIndexer keeps a searchable directory of user projections.
type UserIndexer interface {
	IndexUser(ctx context.Context, p entity.UserProfile) error
	SearchUsers(ctx context.Context, q string, size int) ([]entity.UserProfile, error)
}

// Notifier enqueues user-facing emails.
type Notifier interface {
	Registered(ctx context.Context, p entity.UserProfile) error
	LoggedIn(ctx context.Context, p entity.UserProfile, meta ClientMeta) error
}

// ClientMeta describes the caller of a login, for notifications.
type ClientMeta struct {
	IP        string
	UserAgent string
	At        time.Time
}
