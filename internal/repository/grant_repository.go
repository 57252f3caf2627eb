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

// GrantRepository хранит грантовые возможности.
type GrantRepository struct {
	db *sqlx.DB
}

// NewGrantRepository создаёт репозиторий грантов.
func NewGrantRepository(db *sqlx.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// buildGrantListQuery собирает запрос списка грантов по фильтру.
// Без IncludeInactive всегда ограничивает выборку активными грантами.
func buildGrantListQuery(filter models.GrantFilter) (string, []interface{}) {
	var where common.Where
	if !filter.IncludeInactive {
		where.Add("is_active = TRUE")
	}
	if filter.Category != "" {
		where.Add("category = ?", filter.Category)
	}
	if filter.Region != "" {
		where.Add("region = ?", filter.Region)
	}
	if filter.FundingBody != "" {
		where.Add("funding_body = ?", filter.FundingBody)
	}
	if filter.Search != "" {
		pattern := "%" + common.EscapeLike(filter.Search) + "%"
		where.Add(`(title ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\')`, pattern, pattern)
	}

	return "SELECT * FROM grants" + where.SQL() + " ORDER BY created_at DESC, id", where.Args()
}

// List возвращает гранты по фильтру, новые первыми. Пагинации нет.
func (r *GrantRepository) List(ctx context.Context, filter models.GrantFilter) ([]models.Grant, error) {
	query, args := buildGrantListQuery(filter)

	grants := make([]models.Grant, 0)
	if err := r.db.SelectContext(ctx, &grants, query, args...); err != nil {
		return nil, common.Classify(err, "list grants")
	}
	return grants, nil
}

// GetByID возвращает грант по ID.
func (r *GrantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	return common.GetByID[models.Grant](ctx, r.db, "grants", id, apperror.ErrGrantNotFound)
}

// Create сохраняет грант от имени администратора.
func (r *GrantRepository) Create(ctx context.Context, createdBy uuid.UUID, fields models.GrantFields) (*models.Grant, error) {
	var grant models.Grant
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO grants (title, description, category, region, funding_body, amount, deadline, link, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, fields.Title, fields.Description, fields.Category, fields.Region, fields.FundingBody,
		fields.Amount, fields.Deadline, fields.Link, createdBy).StructScan(&grant)
	if err != nil {
		return nil, common.Classify(err, "create grant")
	}
	return &grant, nil
}

// buildGrantUpdate собирает UPDATE для частичного патча. Аргумент id идёт последним.
func buildGrantUpdate(id uuid.UUID, patch models.GrantPatch) (string, []interface{}) {
	var set common.Set
	if patch.Title != nil {
		set.Add("title", *patch.Title)
	}
	if patch.Description != nil {
		set.Add("description", *patch.Description)
	}
	if patch.Category != nil {
		set.Add("category", *patch.Category)
	}
	if patch.Region != nil {
		set.Add("region", *patch.Region)
	}
	if patch.FundingBody != nil {
		set.Add("funding_body", *patch.FundingBody)
	}
	switch {
	case patch.ClearAmount:
		set.Raw("amount = NULL")
	case patch.Amount != nil:
		set.Add("amount", *patch.Amount)
	}
	switch {
	case patch.ClearDeadline:
		set.Raw("deadline = NULL")
	case patch.Deadline != nil:
		set.Add("deadline", *patch.Deadline)
	}
	switch {
	case patch.ClearLink:
		set.Raw("link = NULL")
	case patch.Link != nil:
		set.Add("link", *patch.Link)
	}
	if patch.IsActive != nil {
		set.Add("is_active", *patch.IsActive)
	}
	set.Raw("updated_at = NOW()")

	args := append(set.Args(), id)
	query := "UPDATE grants SET " + set.SQL() + " WHERE id = $" + strconv.Itoa(set.Next()) + " RETURNING *"
	return query, args
}

// Update применяет частичный патч и возвращает обновлённый грант.
func (r *GrantRepository) Update(ctx context.Context, id uuid.UUID, patch models.GrantPatch) (*models.Grant, error) {
	query, args := buildGrantUpdate(id, patch)

	var grant models.Grant
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&grant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrGrantNotFound
		}
		return nil, common.Classify(err, "update grant")
	}
	return &grant, nil
}

// Delete удаляет грант. Связанные заявки теряют ссылку (ON DELETE SET NULL).
func (r *GrantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grants WHERE id = $1`, id)
	if err != nil {
		return common.Classify(err, "delete grant")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperror.ErrGrantNotFound
	}
	return nil
}
