package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// GetByID - универсальная функция для получения сущности по ID
func GetByID[T any](ctx context.Context, db sqlx.QueryerContext, table string, id interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table)

	if err := sqlx.GetContext(ctx, db, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, Classify(err, fmt.Sprintf("get by id from %s", table))
	}

	return &entity, nil
}

// GetByField - универсальная функция для получения сущности по любому полю
func GetByField[T any](ctx context.Context, db sqlx.QueryerContext, table, field string, value interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", table, field)

	if err := sqlx.GetContext(ctx, db, &entity, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, Classify(err, fmt.Sprintf("get by %s from %s", field, table))
	}

	return &entity, nil
}

// Where накапливает условия и аргументы с нумерацией $N.
type Where struct {
	conds []string
	args  []interface{}
}

// Add добавляет условие; каждый "?" в cond заменяется на очередной $N.
func (w *Where) Add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

// SQL возвращает " WHERE ..." либо пустую строку.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args возвращает аргументы в порядке плейсхолдеров.
func (w *Where) Args() []interface{} {
	return w.args
}

// Set накапливает присваивания для UPDATE ... SET.
type Set struct {
	parts []string
	args  []interface{}
}

// Add добавляет "column = $N".
func (s *Set) Add(column string, value interface{}) {
	s.args = append(s.args, value)
	s.parts = append(s.parts, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

// Raw добавляет выражение без аргумента.
func (s *Set) Raw(expr string) {
	s.parts = append(s.parts, expr)
}

// Len количество присваиваний.
func (s *Set) Len() int {
	return len(s.parts)
}

// SQL возвращает список присваиваний через запятую.
func (s *Set) SQL() string {
	return strings.Join(s.parts, ", ")
}

// Args возвращает аргументы присваиваний.
func (s *Set) Args() []interface{} {
	return s.args
}

// Next номер следующего плейсхолдера после аргументов Set.
func (s *Set) Next() int {
	return len(s.args) + 1
}

// EscapeLike экранирует спецсимволы шаблона LIKE, экранирующий символ: обратный слэш.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
