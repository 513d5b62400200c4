package users

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidUser  = "INVALID_USER"
	TextCodeInvalidPhone = "INVALID_PHONE"
)

func invalidPhoneError(raw string) error {
	return goerrors.New("invalid phone number", goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidPhone).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": map[string]string{"telefono": "must be a valid phone number"}, "value": raw})
}
