package auth

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// EmailPattern is the email shape accepted by the clients
var EmailPattern = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)

// MinPasswordLength is the shortest password accepted on registration
const MinPasswordLength = 6

// MaxPasswordLength is the bcrypt input limit
const MaxPasswordLength = 72

// ValidationError converts ozzo validation errors into a rich error. Field
// messages are kept under the "fields" metadata key.
func ValidationError(message, textCode string, err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	} else {
		fields["_"] = err.Error()
	}

	return goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode(textCode).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"fields": fields})
}

// ValidationFields returns the per field messages attached by ValidationError
func ValidationFields(err error) map[string]string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return nil
	}
	fields, _ := richErr.Metadata["fields"].(map[string]string)
	return fields
}
