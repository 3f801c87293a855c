package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dkoval/identity-service/internal/auth"
	"github.com/dkoval/identity-service/internal/domain"
	"github.com/dkoval/identity-service/internal/event"
	"github.com/dkoval/identity-service/internal/repository"
	apperrors "github.com/dkoval/identity-service/pkg/errors"
)

// invalidCredentials is the single failure returned from Login for a missing
// user, a wrong password, or an inactive account. Callers must not be able
// to tell which identifiers are registered.
func invalidCredentials() *apperrors.AppError {
	return apperrors.Unauthorized("incorrect username or password")
}

// couldNotValidate is the uniform failure for the authenticated request path
// (bad token, unknown subject, failed Basic verification, inactive account).
// The specific reason is logged, never returned.
func couldNotValidate() *apperrors.AppError {
	return apperrors.Unauthorized("could not validate credentials")
}

// UserService implements the business logic for registration, login,
// request authentication, and user administration.
type UserService struct {
	userRepo repository.UserRepository
	codec    *auth.TokenCodec
	throttle *auth.LoginThrottle
	producer *event.Producer
	logger   *slog.Logger
}

// NewUserService creates a new user service. throttle may be nil when login
// throttling is disabled.
func NewUserService(
	userRepo repository.UserRepository,
	codec *auth.TokenCodec,
	throttle *auth.LoginThrottle,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		codec:    codec,
		throttle: throttle,
		producer: producer,
		logger:   logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateProfileInput holds the optional fields a user may change on their own
// account. Nil fields are left untouched.
type UpdateProfileInput struct {
	Email    *string
	Password *string
}

// --- Auth operations ---

// Register creates a new user account with a hashed password. New accounts
// are active and unprivileged.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashed,
		IsActive:     true,
		IsSuperuser:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Publish the registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login verifies an identifier (username or email) and password, and issues a
// bearer token on success. Every failure mode returns the same error so the
// response never reveals whether the identifier exists.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*domain.Token, error) {
	if identifier == "" || password == "" {
		return nil, invalidCredentials()
	}

	if s.throttle.Blocked(ctx, identifier) {
		s.logger.WarnContext(ctx, "login throttled",
			slog.String("identifier", identifier),
		)
		return nil, apperrors.RateLimited("too many failed login attempts")
	}

	user, err := s.userRepo.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		s.throttle.RecordFailure(ctx, identifier)
		return nil, invalidCredentials()
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		s.throttle.RecordFailure(ctx, identifier)
		return nil, invalidCredentials()
	}

	if !user.IsActive {
		s.logger.WarnContext(ctx, "login rejected for inactive account",
			slog.String("user_id", user.ID),
		)
		return nil, invalidCredentials()
	}

	accessToken, err := s.codec.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.throttle.Reset(ctx, identifier)

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &domain.Token{
		AccessToken: accessToken,
		TokenType:   "bearer",
	}, nil
}

// AuthenticateToken resolves a bearer token to an active user. Token
// validity alone is not enough: the subject must still exist and be active
// at verification time, which is how deactivation revokes outstanding tokens.
func (s *UserService) AuthenticateToken(ctx context.Context, token string) (*domain.User, error) {
	subject, err := s.codec.Verify(token)
	if err != nil {
		return nil, couldNotValidate()
	}

	user, err := s.userRepo.GetByUsername(ctx, subject)
	if err != nil {
		return nil, couldNotValidate()
	}

	if !user.IsActive {
		s.logger.WarnContext(ctx, "token presented for inactive account",
			slog.String("user_id", user.ID),
		)
		return nil, couldNotValidate()
	}

	return user, nil
}

// AuthenticateBasic resolves a Basic credential pair to an active user. The
// identifier is matched against both username and email.
func (s *UserService) AuthenticateBasic(ctx context.Context, identifier, secret string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		return nil, couldNotValidate()
	}

	if !auth.VerifyPassword(secret, user.PasswordHash) {
		return nil, couldNotValidate()
	}

	if !user.IsActive {
		s.logger.WarnContext(ctx, "basic credential presented for inactive account",
			slog.String("user_id", user.ID),
		)
		return nil, couldNotValidate()
	}

	return user, nil
}

// --- Profile operations ---

// GetProfile retrieves a user by their ID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateProfile updates the supplied fields on the user's own account. A new
// password is policy-checked and rehashed; other fields are untouched.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Email != nil {
		if *input.Email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		user.Email = *input.Email
	}

	if input.Password != nil {
		if err := auth.ValidatePassword(*input.Password); err != nil {
			return nil, err
		}
		hashed, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// --- Admin operations ---

// ListUsers returns a filtered page of users plus the total match count.
func (s *UserService) ListUsers(ctx context.Context, filter domain.ListFilter, limit, offset int) ([]domain.User, int, error) {
	users, total, err := s.userRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// DeleteUser removes a user account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return apperrors.Forbidden("cannot delete your own account")
	}

	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		return err
	}

	if err := s.producer.PublishUserDeleted(ctx, targetID, actorID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", targetID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", targetID),
		slog.String("deleted_by", actorID),
	)

	return nil
}
