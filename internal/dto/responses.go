package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// ErrorResponse стандартное тело ошибки.
type ErrorResponse struct {
	Error   string                `json:"error"`
	Code    string                `json:"code,omitempty"`
	Details []apperror.FieldError `json:"details,omitempty"`
}

// MessageResponse ответ с сообщением.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteResponse ответ на изменение заявки.
type WriteResponse struct {
	Message   string    `json:"message"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewWriteResponse собирает ответ из результата записи.
func NewWriteResponse(message string, res *models.WriteResult) WriteResponse {
	return WriteResponse{Message: message, Version: res.Version, UpdatedAt: res.UpdatedAt}
}

// TokensResponse пара токенов.
type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// AuthResponse ответ регистрации и входа.
type AuthResponse struct {
	User   *models.User   `json:"user"`
	Tokens TokensResponse `json:"tokens"`
}

// GeneratedProposal краткое представление только что сгенерированной заявки.
type GeneratedProposal struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Version int64     `json:"version"`
}
