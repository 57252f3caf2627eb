package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

func init() {
	// Имена полей в ошибках берём из json тегов, а не из имён структур.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	}
}

// FromBindError превращает ошибку ShouldBindJSON в ошибку валидации с деталями.
func FromBindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		var c Collector
		for _, fe := range verrs {
			c.Addf(fe.Field(), "%s", describeTag(fe))
		}
		return c.Err()
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperror.Validation(apperror.FieldError{Field: field, Message: "неверный тип значения"})
	}

	if errors.Is(err, io.EOF) {
		return apperror.Validation(apperror.FieldError{Field: "body", Message: "пустое тело запроса"})
	}
	return apperror.Validation(apperror.FieldError{Field: "body", Message: "некорректный JSON"})
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("должно быть не менее %s символов", fe.Param())
		}
		return fmt.Sprintf("должно быть не меньше %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("должно быть не более %s символов", fe.Param())
		}
		return fmt.Sprintf("должно быть не больше %s", fe.Param())
	case "email":
		return "некорректный email"
	case "oneof":
		return "допустимые значения: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "недопустимое значение"
	}
}
