package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buildhub/internal/pkg/jwt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	users  Repository
	jwt    *jwt.Service
	admins *CachedAdminDirectory
	log    *zap.Logger
}

func NewService(users Repository, jwtService *jwt.Service, admins *CachedAdminDirectory, log *zap.Logger) *Service {
	return &Service{users: users, jwt: jwtService, admins: admins, log: log}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.log.Info("user logged in", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return &LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwt.TTL()).UTC(),
		User:      u,
	}, nil
}

// Create registers a user. Creating an admin invalidates the cached admin set.
func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	if u.Role == RoleAdmin && s.admins != nil {
		s.admins.Invalidate(ctx)
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
