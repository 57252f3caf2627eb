package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/grantgenius/grantgenius-backend/internal/logger"
	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
	"github.com/grantgenius/grantgenius-backend/internal/validation"
)

// UserRepository описывает зависимости AuthService от слоя хранилища.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthService регистрирует пользователей и выдаёт токены.
type AuthService struct {
	users       UserRepository
	tokens      *TokenManager
	adminEmails map[string]struct{}
}

// RegisterInput данные регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// AuthResult пользователь и пара токенов.
type AuthResult struct {
	User   *models.User
	Tokens *TokenPair
}

// NewAuthService создаёт сервис. Email из adminEmails получают роль ADMIN при регистрации.
func NewAuthService(users UserRepository, tokens *TokenManager, adminEmails []string) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = struct{}{}
		}
	}
	return &AuthService{users: users, tokens: tokens, adminEmails: admins}
}

// Register создаёт пользователя и сразу выдаёт токены.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var c validation.Collector
	validation.ValidatePassword(&c, in.Password)
	if err := c.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := models.UserRoleUser
	if _, ok := s.adminEmails[email]; ok {
		role = models.UserRoleAdmin
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Entry().WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("user registered")

	return s.issue(user)
}

// Login проверяет пароль. Неизвестный email и неверный пароль неразличимы.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	return s.issue(user)
}

// Refresh выпускает новую пару по refresh токену, роль берётся из базы.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
		}
		return nil, err
	}
	return s.issue(user)
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}
