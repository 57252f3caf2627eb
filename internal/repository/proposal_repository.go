package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/grantgenius/grantgenius-backend/internal/models"
	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
	"github.com/grantgenius/grantgenius-backend/internal/repository/common"
)

// Каждая запись сдвигает updated_at строго вперёд, даже если NOW() совпал или отстал.
const touchProposal = "version = version + 1, updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')"

// ProposalRepository хранит заявки. Владелец проверяется в каждом WHERE,
// чужая заявка неотличима от несуществующей.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository создаёт репозиторий заявок.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

type proposalListRow struct {
	models.Proposal
	GrantTitle       *string `db:"g_title"`
	GrantFundingBody *string `db:"g_funding_body"`
}

// ListByUser возвращает заявки пользователя, последние изменённые первыми.
func (r *ProposalRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProposalListItem, error) {
	var rows []proposalListRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT p.*, g.title AS g_title, g.funding_body AS g_funding_body
		FROM proposals p
		LEFT JOIN grants g ON g.id = p.grant_id
		WHERE p.user_id = $1
		ORDER BY p.updated_at DESC, p.id
	`, userID)
	if err != nil {
		return nil, common.Classify(err, "list proposals")
	}

	items := make([]models.ProposalListItem, 0, len(rows))
	for _, row := range rows {
		item := models.ProposalListItem{Proposal: row.Proposal}
		if row.GrantID != nil && row.GrantTitle != nil {
			item.Grant = &models.GrantSummary{
				ID:          *row.GrantID,
				Title:       *row.GrantTitle,
				FundingBody: derefString(row.GrantFundingBody),
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// GetForUser возвращает заявку владельца вместе с полным грантом.
func (r *ProposalRepository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.ProposalDetails, error) {
	var p models.Proposal
	err := r.db.GetContext(ctx, &p, `SELECT * FROM proposals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, common.Classify(err, "get proposal")
	}

	details := &models.ProposalDetails{Proposal: p}
	if p.GrantID != nil {
		grant, err := common.GetByID[models.Grant](ctx, r.db, "grants", *p.GrantID, apperror.ErrGrantNotFound)
		switch {
		case err == nil:
			details.Grant = grant
		case !apperror.IsNotFound(err):
			return nil, err
		}
	}
	return details, nil
}

// Create сохраняет новую заявку.
func (r *ProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO proposals (title, content, status, user_id, grant_id, goal, org_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, p.Title, p.Content, p.Status, p.UserID, p.GrantID, p.Goal, p.OrgType).StructScan(p)
	if err != nil {
		return common.Classify(err, "create proposal")
	}
	return nil
}

// Autosave обновляет только content. Статус не трогается.
func (r *ProposalRepository) Autosave(ctx context.Context, userID, id uuid.UUID, content string, expectedVersion *int64) (*models.WriteResult, error) {
	patch := models.ProposalPatch{Content: &content, ExpectedVersion: expectedVersion}
	return r.Update(ctx, userID, id, patch)
}

// buildProposalUpdate собирает UPDATE с проверкой владельца и, при необходимости, версии.
func buildProposalUpdate(userID, id uuid.UUID, patch models.ProposalPatch) (string, []interface{}) {
	var set common.Set
	if patch.Title != nil {
		set.Add("title", *patch.Title)
	}
	if patch.Content != nil {
		set.Add("content", *patch.Content)
	}
	if patch.Status != nil {
		set.Add("status", *patch.Status)
	}
	set.Raw(touchProposal)

	next := set.Next()
	args := append(set.Args(), id, userID)
	query := "UPDATE proposals SET " + set.SQL() +
		" WHERE id = $" + strconv.Itoa(next) + " AND user_id = $" + strconv.Itoa(next+1)
	if patch.ExpectedVersion != nil {
		args = append(args, *patch.ExpectedVersion)
		query += " AND version = $" + strconv.Itoa(next+2)
	}
	return query + " RETURNING version, updated_at", args
}

// Update применяет частичный патч. Ноль затронутых строк означает NotFound либо Conflict,
// если запись владельца существует, но версия устарела.
func (r *ProposalRepository) Update(ctx context.Context, userID, id uuid.UUID, patch models.ProposalPatch) (*models.WriteResult, error) {
	query, args := buildProposalUpdate(userID, id, patch)

	var res models.WriteResult
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&res)
	if err == nil {
		return &res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, common.Classify(err, "update proposal")
	}
	return nil, r.resolveMiss(ctx, userID, id, patch.ExpectedVersion)
}

// resolveMiss определяет причину пустого UPDATE в рамках записей владельца.
func (r *ProposalRepository) resolveMiss(ctx context.Context, userID, id uuid.UUID, expectedVersion *int64) error {
	if expectedVersion == nil {
		return apperror.ErrProposalNotFound
	}

	var current int64
	err := r.db.GetContext(ctx, &current, `SELECT version FROM proposals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrProposalNotFound
		}
		return common.Classify(err, "probe proposal version")
	}
	return apperror.Conflict("заявка была изменена, обновите данные", current)
}

// Delete удаляет заявку владельца.
func (r *ProposalRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return common.Classify(err, "delete proposal")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperror.ErrProposalNotFound
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
