package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/binaryblade24/marketplace-backend/internal/models"
	"github.com/binaryblade24/marketplace-backend/internal/pkg/apperror"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	user.ID = uuid.New()
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newAuthService() (*AuthService, *mockAuthRepo) {
	repo := new(mockAuthRepo)
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
	return NewAuthService(repo, tm), repo
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Email == "anna@example.com" &&
			u.Role == models.RoleFreelancer &&
			u.PasswordHash != "secret-password"
	})).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "  Anna@Example.com ",
		Password: "secret-password",
		Username: "anna",
		Role:     models.RoleFreelancer,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"пустой email", RegisterInput{Email: "", Password: "secret-password", Username: "anna", Role: models.RoleClient}},
		{"email без @", RegisterInput{Email: "anna.example.com", Password: "secret-password", Username: "anna", Role: models.RoleClient}},
		{"короткий пароль", RegisterInput{Email: "anna@example.com", Password: "short", Username: "anna", Role: models.RoleClient}},
		{"пустое имя", RegisterInput{Email: "anna@example.com", Password: "secret-password", Username: "  ", Role: models.RoleClient}},
		{"неизвестная роль", RegisterInput{Email: "anna@example.com", Password: "secret-password", Username: "anna", Role: "admin"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.input)
			assert.True(t, apperror.IsValidation(err))
		})
	}
	repo.AssertNotCalled(t, "Create")
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	assert.NoError(t, err)

	user := &models.User{ID: uuid.New(), Email: "anna@example.com",
		PasswordHash: string(hash), Role: models.RoleClient}
	repo.On("GetByEmail", ctx, "anna@example.com").Return(user, nil)

	result, err := svc.Login(ctx, LoginInput{Email: "Anna@Example.com", Password: "secret-password"})
	assert.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	user := &models.User{ID: uuid.New(), Email: "anna@example.com", PasswordHash: string(hash)}
	repo.On("GetByEmail", ctx, "anna@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "anna@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperror.ErrUserNotFound)

	_, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret-password"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Refresh_RoundTrip(t *testing.T) {
	svc, repo := newAuthService()
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "anna@example.com", Role: models.RoleFreelancer}
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	user.PasswordHash = string(hash)

	repo.On("GetByEmail", ctx, "anna@example.com").Return(user, nil)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)

	login, err := svc.Login(ctx, LoginInput{Email: "anna@example.com", Password: "secret-password"})
	assert.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.TokenPair.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
