package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/grantgenius/grantgenius-backend/internal/models"
)

// ErrInvalidToken токен не прошёл проверку.
var ErrInvalidToken = errors.New("токен невалиден")

// TokenPair хранит пару access/refresh токенов.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Identity данные пользователя из access токена.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin сообщает, есть ли у пользователя роль администратора.
func (i Identity) IsAdmin() bool {
	return i.Role == models.UserRoleAdmin
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GeneratePair выпускает новую пару токенов.
func (m *TokenManager) GeneratePair(user *models.User) (*TokenPair, error) {
	now := m.now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
	})
	accessToken, err := access.SignedString(m.accessSecret)
	if err != nil {
		return nil, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
	})
	refreshToken, err := refresh.SignedString(m.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    m.accessTTL,
	}, nil
}

// ParseAccess проверяет access токен и возвращает личность пользователя.
func (m *TokenManager) ParseAccess(token string) (Identity, error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, m.keyFunc(m.accessSecret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID, Role: claims.Role}, nil
}

// ParseRefresh проверяет refresh токен и возвращает ID пользователя.
func (m *TokenManager) ParseRefresh(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, m.keyFunc(m.refreshSecret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

func (m *TokenManager) keyFunc(secret []byte) jwt.Keyfunc {
	return func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}
}
