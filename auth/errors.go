package auth

import (
	"database/sql"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeIdentityNotFound     = "USER_NOT_FOUND"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodePasswordTooLong      = "PASSWORD_TOO_LONG"
	TextCodeTooManyAttempts      = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeUserInactive         = "USER_INACTIVE"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeAdminRequired        = "ADMIN_REQUIRED"
	TextCodeForbidden            = "FORBIDDEN"
	TextCodeImpersonateSelf      = "IMPERSONATE_SELF"
	TextCodeNestedImpersonation  = "NESTED_IMPERSONATION"
	TextCodeNotImpersonating     = "NOT_IMPERSONATING"
	TextCodeEmailTaken           = "EMAIL_TAKEN"
	TextCodeInvalidRole          = "INVALID_ROLE"
	TextCodeInvalidRegistration  = "INVALID_REGISTRATION"
	TextCodeInvalidIdentifierUID = "INVALID_USER_ID"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned for unknown emails and wrong passwords alike
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordTooLong is returned for passwords over the bcrypt input limit
var ErrPasswordTooLong = goerrors.New("password can not be longer than 72 bytes", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordTooLong).
	WithCode(goerrors.CodeBadRequest)

// ErrTooManyLoginAttempts is returned while an account is cooling down
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(http.StatusTooManyRequests)

// ErrUserInactive is returned when a deactivated account tries to authenticate
var ErrUserInactive = goerrors.New("user is inactive", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserInactive).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their expiration
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature checks
var ErrTokenMalformed = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrAdminRequired is returned when a non admin reaches an admin operation
var ErrAdminRequired = goerrors.New("admin privileges required", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAdminRequired).
	WithCode(goerrors.CodeForbidden)

// ErrForbidden is returned when a user acts on a resource that is not theirs
var ErrForbidden = goerrors.New("not allowed to access this resource", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrImpersonateSelf is returned when an admin targets their own account
var ErrImpersonateSelf = goerrors.New("cannot impersonate yourself", goerrors.CategoryBadInput).
	WithTextCode(TextCodeImpersonateSelf).
	WithCode(goerrors.CodeBadRequest)

// ErrNestedImpersonation is returned when an impersonated session tries to impersonate again
var ErrNestedImpersonation = goerrors.New("already impersonating a user", goerrors.CategoryBadInput).
	WithTextCode(TextCodeNestedImpersonation).
	WithCode(goerrors.CodeBadRequest)

// ErrNotImpersonating is returned when stopping a session that is not impersonated
var ErrNotImpersonating = goerrors.New("not impersonating any user", goerrors.CategoryBadInput).
	WithTextCode(TextCodeNotImpersonating).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned when registering an email that already exists
var ErrEmailTaken = goerrors.New("email is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidUserID is returned for ids that are not valid UUIDs
var ErrInvalidUserID = goerrors.New("invalid user id", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidIdentifierUID).
	WithCode(goerrors.CodeBadRequest)

// HasTextCode reports whether err is a rich error carrying the given text code
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsNotFound reports missing rows and not found rich errors
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return false
}
