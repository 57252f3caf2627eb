package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает учётную запись.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// IsAdmin сообщает, есть ли у пользователя роль администратора.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
