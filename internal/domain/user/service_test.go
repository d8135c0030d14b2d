package user

import (
	"context"
	"testing"
	"time"

	"buildhub/internal/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserRepo) ListIDsByRole(ctx context.Context, role Role) ([]string, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestService(repo Repository) (*Service, *jwt.Service) {
	jwtService := jwt.New("test-secret", time.Hour)
	dir := NewCachedAdminDirectory(repo, nil, time.Minute, zap.NewNop())
	return NewService(repo, jwtService, dir, zap.NewNop()), jwtService
}

func TestLogin_Success(t *testing.T) {
	repo := new(mockUserRepo)
	svc, jwtService := newTestService(repo)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	repo.On("GetByEmail", mock.Anything, "ops@buildhub.test").Return(&User{
		ID:           "u-1",
		Email:        "ops@buildhub.test",
		PasswordHash: string(hashed),
		Role:         RoleAdmin,
	}, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ops@buildhub.test", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", resp.User.ID)

	claims, err := jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	repo.AssertExpectations(t)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	repo.On("GetByEmail", mock.Anything, "ops@buildhub.test").Return(&User{
		ID: "u-1", PasswordHash: string(hashed), Role: RoleAdmin,
	}, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ops@buildhub.test", Password: "nope-nope"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)

	repo.On("GetByEmail", mock.Anything, "ghost@buildhub.test").Return(nil, ErrUserNotFound)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@buildhub.test", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreate_HashesPassword(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *User) bool {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longpassword")) == nil
	})).Return(nil)

	u, err := svc.Create(context.Background(), CreateUserRequest{
		Email: "pm@buildhub.test", Password: "longpassword", Name: "PM", Role: RoleManager,
	})
	require.NoError(t, err)
	assert.Equal(t, RoleManager, u.Role)
	repo.AssertExpectations(t)
}

func TestCreate_RejectsUnknownRole(t *testing.T) {
	repo := new(mockUserRepo)
	svc, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateUserRequest{Role: "owner", Password: "longpassword"})
	assert.ErrorIs(t, err, ErrInvalidRole)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
