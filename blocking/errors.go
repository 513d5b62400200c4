package blocking

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidDuration    = "INVALID_BLOCK_DURATION"
	TextCodeBlockAlreadyActive = "BLOCK_ALREADY_ACTIVE"
)

func invalidDurationError(value string) error {
	return goerrors.New("invalid duration, use day, week or month", goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidDuration).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"duration": value})
}

func alreadyActiveError(until time.Time) error {
	return goerrors.New("a block is already active", goerrors.CategoryConflict).
		WithTextCode(TextCodeBlockAlreadyActive).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"blockUntil": until.UTC()})
}
