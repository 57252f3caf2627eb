package models

import (
	"time"

	"github.com/google/uuid"
)

// Grant описывает грантовую возможность.
type Grant struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Category    string     `db:"category" json:"category"`
	Region      string     `db:"region" json:"region"`
	FundingBody string     `db:"funding_body" json:"fundingBody"`
	Amount      *string    `db:"amount" json:"amount"`
	Deadline    *time.Time `db:"deadline" json:"deadline"`
	Link        *string    `db:"link" json:"link"`
	IsActive    bool       `db:"is_active" json:"isActive"`
	CreatedBy   uuid.UUID  `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// GrantSummary минимальная проекция гранта для списка заявок.
type GrantSummary struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	FundingBody string    `db:"funding_body" json:"fundingBody"`
}

// GrantFilter параметры фильтрации списка грантов.
type GrantFilter struct {
	Category    string
	Region      string
	FundingBody string
	Search      string
	// IncludeInactive используется только в админском списке.
	IncludeInactive bool
}

// GrantFields поля для создания гранта (после валидации).
type GrantFields struct {
	Title       string
	Description string
	Category    string
	Region      string
	FundingBody string
	Amount      *string
	Deadline    *time.Time
	Link        *string
}

// GrantPatch частичное обновление гранта. nil означает «не менять».
// Для Amount, Deadline и Link флаг Clear* означает сброс в NULL.
type GrantPatch struct {
	Title         *string
	Description   *string
	Category      *string
	Region        *string
	FundingBody   *string
	Amount        *string
	ClearAmount   bool
	Deadline      *time.Time
	ClearDeadline bool
	Link          *string
	ClearLink     bool
	IsActive      *bool
}

// IsEmpty сообщает, что в патче нет ни одного изменения.
func (p GrantPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Region == nil && p.FundingBody == nil &&
		p.Amount == nil && !p.ClearAmount &&
		p.Deadline == nil && !p.ClearDeadline &&
		p.Link == nil && !p.ClearLink &&
		p.IsActive == nil
}
