package repository

import (
	"context"

	"github.com/dkoval/identity-service/internal/domain"
)

// UserRepository defines the interface for credential store operations.
type UserRepository interface {
	// Create inserts a new user. Duplicate username or email fails the
	// write with an already-exists error.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by their exact username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByUsernameOrEmail retrieves a user whose username or email equals
	// the given identifier.
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.User, error)

	// Update modifies an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user by their identifier.
	Delete(ctx context.Context, id string) error

	// List returns a page of users matching the filter plus the total
	// match count, ordered by creation time descending.
	List(ctx context.Context, filter domain.ListFilter, limit, offset int) ([]domain.User, int, error)
}
