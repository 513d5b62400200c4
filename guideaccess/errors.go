package guideaccess

import goerrors "github.com/goliatone/go-errors"

const TextCodeInvalidExtension = "INVALID_EXTENSION_ID"

// ErrExtensionIDRequired is returned when registering an empty extension id
var ErrExtensionIDRequired = goerrors.New("extensionId is required", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidExtension).
	WithCode(goerrors.CodeBadRequest)
