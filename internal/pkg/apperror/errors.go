package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeGenerationFailed   ErrorCode = "GENERATION_FAILED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// FieldError описывает ошибку валидации конкретного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    []FieldError
	// Extra попадает в тело ответа как есть (например, текущая версия при конфликте).
	Extra      map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы errors.Is работал с sentinel-значениями.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation собирает ошибку валидации с деталями по полям.
func Validation(details ...FieldError) *AppError {
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    "неверные входные данные",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Conflict возвращает ошибку устаревшей версии с текущей версией записи.
func Conflict(message string, currentVersion int64) *AppError {
	err := New(ErrCodeConflict, message)
	err.Extra = map[string]any{"currentVersion": currentVersion}
	return err
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeGenerationFailed:
		return http.StatusBadGateway
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As достаёт AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeValidation
}

func IsConflict(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeConflict
}

func IsGenerationFailed(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeGenerationFailed
}

var (
	ErrGrantNotFound       = New(ErrCodeNotFound, "грант не найден")
	ErrProposalNotFound    = New(ErrCodeNotFound, "заявка не найдена")
	ErrUserNotFound        = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden           = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials  = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrEmailTaken          = New(ErrCodeConflict, "пользователь с таким email уже существует")
	ErrGenerationFailed    = New(ErrCodeGenerationFailed, "не удалось сгенерировать заявку, попробуйте ещё раз")
	ErrDatabaseUnavailable = New(ErrCodeServiceUnavailable, "база данных временно недоступна")
)
