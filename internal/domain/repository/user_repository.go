package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-user-session/internal/domain/entity"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateIdentity = errors.New("username or email already exists")
)

// UserRepository defines the credential store used by the session controller.
// Username and email lookups are case-insensitive; callers pass lowercase values.
type UserRepository interface {
	// FindByIdentifier matches either the username or the email.
	FindByIdentifier(ctx context.Context, usernameOrEmail string) (*entity.User, error)
	// FindByUsernameOrEmail returns the first user holding either value.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	// Create fails with ErrDuplicateIdentity on a unique violation.
	Create(ctx context.Context, u *entity.User) error
	// Delete removes the identity; deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// SaveRefreshToken overwrites the stored token; nil clears it.
	SaveRefreshToken(ctx context.Context, id string, token *string) error
	// SwapRefreshToken replaces the stored token only if it still equals current.
	// It reports false when another writer got there first.
	SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error)
}
