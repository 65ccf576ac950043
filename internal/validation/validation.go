// Package validation проверяет входные данные по тегам validate.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator проверяет структуры запросов. Имена полей в ошибках берутся из тегов json.
type Validator struct {
	v *validator.Validate
}

// New создаёт валидатор.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct проверяет структуру s.
func (v *Validator) Struct(s any) error {
	return v.v.Struct(s)
}

// Details превращает ошибку валидации в список сообщений для клиента.
// Для прочих ошибок возвращает nil.
func Details(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	details := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			details = append(details, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "min":
			details = append(details, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
		default:
			details = append(details, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return details
}
