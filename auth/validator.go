package auth

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"

	apperrors "texttalk/errors"
)

var validate = validator.New()

// usernamePattern restricts usernames to a charset that excludes the room
// key separator, keeping pairwise room keys collision-free.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

type RegisterRequest struct {
	Username string `validate:"required,min=2,max=64"`
	Password string `validate:"required,min=12,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	if !usernamePattern.MatchString(req.Username) {
		return fmt.Errorf("%w: only letters, digits, '_', '.' and '-' are allowed", apperrors.ErrInvalidUsername)
	}

	if !isPasswordComplex(req.Password) {
		return apperrors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
