package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
	"github.com/grantgenius/grantgenius-backend/internal/repository/common"
)

// UserRepository хранит учётные записи.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет пользователя и заполняет ID и CreatedAt.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, user.Email, user.Name, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.ErrEmailTaken
		}
		return common.Classify(err, "create user")
	}
	return nil
}

// GetByID возвращает пользователя по ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, apperror.ErrUserNotFound)
}

// GetByEmail возвращает пользователя по email без учёта регистра.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", strings.ToLower(strings.TrimSpace(email)), apperror.ErrUserNotFound)
}
