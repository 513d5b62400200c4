package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/goliatone/go-tiltguard/auth"
)

const (
	TextCodeRouteNotFound = "ROUTE_NOT_FOUND"
	TextCodeBadPayload    = "BAD_PAYLOAD"
)

var errRouteNotFound = goerrors.New("route not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeRouteNotFound).
	WithCode(goerrors.CodeNotFound)

func badPayloadError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
		WithTextCode(TextCodeBadPayload).
		WithCode(goerrors.CodeBadRequest)
}

func categoryStatus(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// statusAndEnvelope maps any error to an HTTP status and response body
func statusAndEnvelope(err error) (int, envelope, *goerrors.Error) {
	var richErr *goerrors.Error
	var fiberErr *fiber.Error
	if !goerrors.As(err, &richErr) && errors.As(err, &fiberErr) {
		return fiberErr.Code, envelope{Error: fiberErr.Message}, nil
	}

	if richErr == nil {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "internal server error").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status < 400 || status > 599 {
		status = categoryStatus(richErr)
	}

	env := envelope{
		Error:  richErr.Message,
		Code:   richErr.TextCode,
		Fields: auth.ValidationFields(richErr),
	}
	if status >= http.StatusInternalServerError {
		env.Error = "internal server error"
		env.Code = ""
		env.Fields = nil
	}
	return status, env, richErr
}

// ErrorHandler renders errors in the response envelope
func ErrorHandler(logger auth.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, env, richErr := statusAndEnvelope(err)

		if status >= http.StatusInternalServerError {
			args := []any{"method", c.Method(), "path", c.Path(), "status", status, "error", err}
			if richErr != nil {
				args = append(args, "details", print.MaybePrettyJSON(richErr.Metadata))
			}
			logger.Error("request failed", args...)
		} else {
			logger.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", env.Error, "code", env.Code)
		}

		return c.Status(status).JSON(env)
	}
}
