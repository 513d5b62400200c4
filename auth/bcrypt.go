package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost used by HashPassword. Tests lower it.
var PasswordHashCost = 12

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	switch {
	case password == "":
		return "", ErrNoEmptyString
	case len(password) > MaxPasswordLength:
		return "", ErrPasswordTooLong
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(h), nil
}

// ComparePasswordAndHash returns ErrMismatchedHashAndPassword unless
// password produced hash. A hash too short to parse counts as a mismatch.
func ComparePasswordAndHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrHashTooShort):
		return ErrMismatchedHashAndPassword
	default:
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password hash")
	}
}
