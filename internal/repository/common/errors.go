package common

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"

	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// Коды PostgreSQL, которые различаем явно.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqNotNullViolation    = "23502"
	pqInvalidTextRepr     = "22P02"
)

// Classify переводит ошибку драйвера в доменную ошибку.
// Нарушения ограничений отличаются от проблем соединения, остальное считается внутренней ошибкой.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return apperror.Wrap(err, apperror.ErrCodeConflict, "запись уже существует")
		case pqForeignKeyViolation:
			return apperror.Wrap(err, apperror.ErrCodeValidation, "связанная запись не найдена")
		case pqCheckViolation, pqNotNullViolation, pqInvalidTextRepr:
			return apperror.Wrap(err, apperror.ErrCodeValidation, "данные не прошли проверку базы")
		}
		// Класс 08: ошибки соединения, класс 57 означает остановку сервера.
		if pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57" {
			return apperror.Wrap(err, apperror.ErrCodeServiceUnavailable, apperror.ErrDatabaseUnavailable.Message)
		}
		return apperror.Wrap(err, apperror.ErrCodeInternal, op)
	}

	if isConnectivity(err) {
		return apperror.Wrap(err, apperror.ErrCodeServiceUnavailable, apperror.ErrDatabaseUnavailable.Message)
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, op)
}

// IsUniqueViolation сообщает о нарушении уникального индекса.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
