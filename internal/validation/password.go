package validation

import (
	"unicode"
)

// MinPasswordLength минимальная длина пароля.
const MinPasswordLength = 8

// ValidatePassword проверяет пароль: не короче MinPasswordLength,
// есть буквы обоих регистров и цифра.
func ValidatePassword(c *Collector, password string) {
	if len([]rune(password)) < MinPasswordLength {
		c.Addf("password", "пароль должен быть не менее %d символов", MinPasswordLength)
		return
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasUpper || !hasLower || !hasNumber {
		c.Addf("password", "пароль должен содержать заглавную и строчную буквы и цифру")
	}
}
