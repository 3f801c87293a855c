package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkoval/identity-service/internal/auth"
	"github.com/dkoval/identity-service/internal/domain"
	"github.com/dkoval/identity-service/internal/event"
	apperrors "github.com/dkoval/identity-service/pkg/errors"
	pkgkafka "github.com/dkoval/identity-service/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) List(ctx context.Context, filter domain.ListFilter, limit, offset int) ([]domain.User, int, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestCodec(t *testing.T) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:    "test-secret-key-for-testing-only-32ch",
		Algorithm: "HS256",
		Expiry:    15 * time.Minute,
	})
	require.NoError(t, err)
	return codec
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func newTestService(t *testing.T, userRepo *mockUserRepository) *UserService {
	t.Helper()
	return NewUserService(userRepo, newTestCodec(t), nil, newTestEventProducer(), newTestLogger())
}

func strPtr(s string) *string {
	return &s
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	input := RegisterInput{
		Username: "johndoe",
		Email:    "john@example.com",
		Password: "SecurePass123",
	}

	user, err := svc.Register(ctx, input)

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "johndoe", user.Username)
	assert.Equal(t, "john@example.com", user.Email)
	assert.NotEqual(t, "SecurePass123", user.PasswordHash)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.NotZero(t, user.CreatedAt)
	assert.NotZero(t, user.UpdatedAt)

	userRepo.AssertExpectations(t)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "username", "johndoe"))

	input := RegisterInput{
		Username: "johndoe",
		Email:    "john@example.com",
		Password: "SecurePass123",
	}

	user, err := svc.Register(ctx, input)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	userRepo.AssertExpectations(t)
}

func TestRegister_WeakPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1"},
		{"no uppercase", "securepass123"},
		{"no lowercase", "SECUREPASS123"},
		{"no digit", "SecurePassword"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(mockUserRepository)
			svc := newTestService(t, userRepo)

			input := RegisterInput{
				Username: "johndoe",
				Email:    "john@example.com",
				Password: tt.password,
			}

			user, err := svc.Register(context.Background(), input)

			assert.Nil(t, user)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			userRepo.AssertNotCalled(t, "Create")
		})
	}
}

func TestRegister_MissingUsername(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)

	input := RegisterInput{
		Username: "",
		Email:    "john@example.com",
		Password: "SecurePass123",
	}

	user, err := svc.Register(context.Background(), input)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	existing := &domain.User{
		ID:           "user-123",
		Username:     "johndoe",
		Email:        "john@example.com",
		PasswordHash: hashForTest("SecurePass123"),
		IsActive:     true,
	}

	userRepo.On("GetByUsernameOrEmail", ctx, "johndoe").Return(existing, nil)

	token, err := svc.Login(ctx, "johndoe", "SecurePass123")

	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)

	userRepo.AssertExpectations(t)
}

func TestLogin_ByEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	existing := &domain.User{
		ID:           "user-123",
		Username:     "johndoe",
		Email:        "john@example.com",
		PasswordHash: hashForTest("SecurePass123"),
		IsActive:     true,
	}

	userRepo.On("GetByUsernameOrEmail", ctx, "john@example.com").Return(existing, nil)

	token, err := svc.Login(ctx, "john@example.com", "SecurePass123")

	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)

	userRepo.AssertExpectations(t)
}

// TestLogin_UniformFailure verifies that an unknown identifier, a wrong
// password, and an inactive account all produce the exact same error, so a
// caller cannot probe which usernames are registered.
func TestLogin_UniformFailure(t *testing.T) {
	ctx := context.Background()

	unknownRepo := new(mockUserRepository)
	unknownRepo.On("GetByUsernameOrEmail", ctx, "ghost").Return(nil, apperrors.ErrNotFound)

	wrongPassRepo := new(mockUserRepository)
	wrongPassRepo.On("GetByUsernameOrEmail", ctx, "johndoe").Return(&domain.User{
		ID:           "user-123",
		Username:     "johndoe",
		PasswordHash: hashForTest("CorrectPass123"),
		IsActive:     true,
	}, nil)

	inactiveRepo := new(mockUserRepository)
	inactiveRepo.On("GetByUsernameOrEmail", ctx, "johndoe").Return(&domain.User{
		ID:           "user-123",
		Username:     "johndoe",
		PasswordHash: hashForTest("SecurePass123"),
		IsActive:     false,
	}, nil)

	_, errUnknown := newTestService(t, unknownRepo).Login(ctx, "ghost", "AnyPass123")
	_, errWrongPass := newTestService(t, wrongPassRepo).Login(ctx, "johndoe", "WrongPass456")
	_, errInactive := newTestService(t, inactiveRepo).Login(ctx, "johndoe", "SecurePass123")

	require.Error(t, errUnknown)
	require.Error(t, errWrongPass)
	require.Error(t, errInactive)

	assert.ErrorIs(t, errUnknown, apperrors.ErrUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
	assert.Equal(t, errUnknown.Error(), errInactive.Error())
}

func TestLogin_EmptyCredentials(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)

	token, err := svc.Login(context.Background(), "", "")

	assert.Nil(t, token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	userRepo.AssertNotCalled(t, "GetByUsernameOrEmail")
}

// --- AuthenticateToken Tests ---

func TestAuthenticateToken_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	existing := &domain.User{
		ID:       "user-123",
		Username: "johndoe",
		IsActive: true,
	}
	userRepo.On("GetByUsername", ctx, "johndoe").Return(existing, nil)

	tokenString, err := newTestCodec(t).Issue("johndoe")
	require.NoError(t, err)

	user, err := svc.AuthenticateToken(ctx, tokenString)

	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)

	userRepo.AssertExpectations(t)
}

func TestAuthenticateToken_Garbage(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)

	user, err := svc.AuthenticateToken(context.Background(), "not-a-token")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	userRepo.AssertNotCalled(t, "GetByUsername")
}

func TestAuthenticateToken_SubjectDeleted(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("GetByUsername", ctx, "johndoe").Return(nil, apperrors.ErrNotFound)

	tokenString, err := newTestCodec(t).Issue("johndoe")
	require.NoError(t, err)

	user, err := svc.AuthenticateToken(ctx, tokenString)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// A valid token is rejected once the account is deactivated, which is how
// deactivation revokes tokens that are still within their expiry window.
func TestAuthenticateToken_InactiveAccount(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("GetByUsername", ctx, "johndoe").Return(&domain.User{
		ID:       "user-123",
		Username: "johndoe",
		IsActive: false,
	}, nil)

	tokenString, err := newTestCodec(t).Issue("johndoe")
	require.NoError(t, err)

	user, err := svc.AuthenticateToken(ctx, tokenString)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// --- AuthenticateBasic Tests ---

func TestAuthenticateBasic_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	existing := &domain.User{
		ID:           "user-123",
		Username:     "johndoe",
		PasswordHash: hashForTest("SecurePass123"),
		IsActive:     true,
	}
	userRepo.On("GetByUsernameOrEmail", ctx, "johndoe").Return(existing, nil)

	user, err := svc.AuthenticateBasic(ctx, "johndoe", "SecurePass123")

	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
}

func TestAuthenticateBasic_WrongSecret(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("GetByUsernameOrEmail", ctx, "johndoe").Return(&domain.User{
		ID:           "user-123",
		Username:     "johndoe",
		PasswordHash: hashForTest("SecurePass123"),
		IsActive:     true,
	}, nil)

	user, err := svc.AuthenticateBasic(ctx, "johndoe", "WrongPass456")

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// --- UpdateProfile Tests ---

func TestUpdateProfile_Email(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	existing := &domain.User{
		ID:       "user-123",
		Username: "johndoe",
		Email:    "john@example.com",
		IsActive: true,
	}

	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, err := svc.UpdateProfile(ctx, "user-123", UpdateProfileInput{
		Email: strPtr("jonathan@example.com"),
	})

	require.NoError(t, err)
	assert.Equal(t, "jonathan@example.com", user.Email)
	assert.Equal(t, "johndoe", user.Username)

	userRepo.AssertExpectations(t)
}

func TestUpdateProfile_Password(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	existing := &domain.User{
		ID:           "user-123",
		Username:     "johndoe",
		PasswordHash: hashForTest("OldPass123"),
		IsActive:     true,
	}

	userRepo.On("GetByID", ctx, "user-123").Return(existing, nil)
	userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, err := svc.UpdateProfile(ctx, "user-123", UpdateProfileInput{
		Password: strPtr("NewSecure456"),
	})

	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword("NewSecure456", user.PasswordHash))
	assert.False(t, auth.VerifyPassword("OldPass123", user.PasswordHash))
}

func TestUpdateProfile_WeakPassword(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(&domain.User{
		ID:       "user-123",
		Username: "johndoe",
	}, nil)

	user, err := svc.UpdateProfile(ctx, "user-123", UpdateProfileInput{
		Password: strPtr("weak"),
	})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	userRepo.AssertNotCalled(t, "Update")
}

func TestUpdateProfile_EmailConflict(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "user-123").Return(&domain.User{
		ID:       "user-123",
		Username: "johndoe",
		Email:    "john@example.com",
	}, nil)
	userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "taken@example.com"))

	user, err := svc.UpdateProfile(ctx, "user-123", UpdateProfileInput{
		Email: strPtr("taken@example.com"),
	})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

// --- ListUsers Tests ---

func TestListUsers_PassesFilter(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	active := true
	filter := domain.ListFilter{Username: strPtr("john"), IsActive: &active}
	expected := []domain.User{{ID: "user-123", Username: "johndoe"}}

	userRepo.On("List", ctx, filter, 20, 0).Return(expected, 1, nil)

	users, total, err := svc.ListUsers(ctx, filter, 20, 0)

	require.NoError(t, err)
	assert.Equal(t, expected, users)
	assert.Equal(t, 1, total)

	userRepo.AssertExpectations(t)
}

// --- DeleteUser Tests ---

func TestDeleteUser_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("Delete", ctx, "user-456").Return(nil)

	err := svc.DeleteUser(ctx, "admin-123", "user-456")

	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestDeleteUser_Self(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)

	err := svc.DeleteUser(context.Background(), "admin-123", "admin-123")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	userRepo.AssertNotCalled(t, "Delete")
}

func TestDeleteUser_NotFound(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc := newTestService(t, userRepo)
	ctx := context.Background()

	userRepo.On("Delete", ctx, "nonexistent").Return(apperrors.NotFound("user", "nonexistent"))

	err := svc.DeleteUser(ctx, "admin-123", "nonexistent")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
