package models

import (
	"time"

	"github.com/google/uuid"
)

// Proposal черновик или финальная версия грантовой заявки пользователя.
type Proposal struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Content   string     `db:"content" json:"content"`
	Status    string     `db:"status" json:"status"`
	UserID    uuid.UUID  `db:"user_id" json:"userId"`
	GrantID   *uuid.UUID `db:"grant_id" json:"grantId"`
	Goal      string     `db:"goal" json:"goal"`
	OrgType   string     `db:"org_type" json:"orgType"`
	Version   int64      `db:"version" json:"version"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// ProposalListItem заявка в списке пользователя с краткой информацией о гранте.
type ProposalListItem struct {
	Proposal
	Grant *GrantSummary `json:"grant"`
}

// ProposalDetails заявка с полным связанным грантом.
type ProposalDetails struct {
	Proposal
	Grant *Grant `json:"grant"`
}

// ProposalPatch частичное обновление заявки.
type ProposalPatch struct {
	Title   *string
	Content *string
	Status  *string
	// ExpectedVersion включает проверку версии; при nil побеждает последняя запись.
	ExpectedVersion *int64
}

// WriteResult результат успешной записи заявки.
type WriteResult struct {
	Version   int64     `db:"version" json:"version"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
