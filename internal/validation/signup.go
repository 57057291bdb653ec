// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/quickdeliver/internal/password"
)

// ErrInvalid является общей причиной ошибок валидации.
var ErrInvalid = errors.New("invalid input")

// Signup содержит данные формы регистрации.
type Signup struct {
	Username        string `json:"username" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,contains=@,contains=."`
	Name            string `json:"name" validate:"required,fullname"`
	Password        string `json:"password" validate:"required,min=6,pwbytes"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Error описывает первое нарушенное правило.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return ErrInvalid }

// Правила проверяются в этом порядке; сообщается первое нарушенное.
var rules = []struct {
	field   string
	tag     string
	message string
}{
	{"", "required", "Please fill in all fields"},
	{"ConfirmPassword", "eqfield", "Passwords don't match"},
	{"Password", "min", "Password must be at least 6 characters"},
	{"Password", "pwbytes", "Password must be at most 72 bytes"},
	{"Email", "contains", "Please enter a valid email address"},
	{"Username", "min", "Username must be at least 3 characters"},
	{"Name", "fullname", "Please enter your full name"},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return len([]rune(strings.TrimSpace(fl.Field().String()))) >= 2
	})
	// Длина считается в байтах: bcrypt не принимает пароли длиннее password.MaxBytes.
	_ = v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= password.MaxBytes
	})
	return v
}

// ValidateSignup проверяет форму регистрации. Возвращает *Error или nil.
func ValidateSignup(s Signup) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Message: err.Error()}
	}

	for _, rule := range rules {
		for _, fe := range verrs {
			if fe.Tag() != rule.tag {
				continue
			}
			if rule.field != "" && fe.StructField() != rule.field {
				continue
			}
			return &Error{Field: fe.Field(), Message: rule.message}
		}
	}

	return &Error{Field: verrs[0].Field(), Message: "Invalid value for " + verrs[0].Field()}
}
