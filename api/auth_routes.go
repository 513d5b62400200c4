package api

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-tiltguard/auth"
)

const TextCodeInvalidLogin = "INVALID_LOGIN"

type registerPayload struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p loginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

func (s *Server) register(c *fiber.Ctx) error {
	var payload registerPayload
	if err := c.BodyParser(&payload); err != nil {
		return badPayloadError(err)
	}

	user, err := s.deps.Register.Execute(c.UserContext(), auth.RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return err
	}

	identity := user.Identity()
	token, err := s.deps.Auth.IssueToken(identity)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(envelope{
		Success: true,
		Token:   token,
		User:    summary(identity, ""),
	})
}

func (s *Server) login(c *fiber.Ctx) error {
	var payload loginPayload
	if err := c.BodyParser(&payload); err != nil {
		return badPayloadError(err)
	}
	payload.Email = strings.TrimSpace(payload.Email)

	if err := payload.Validate(); err != nil {
		return auth.ValidationError("email and password are required", TextCodeInvalidLogin, err)
	}

	token, identity, err := s.deps.Auth.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(envelope{
		Success: true,
		Token:   token,
		User:    summary(identity, ""),
	})
}

func (s *Server) me(c *fiber.Ctx) error {
	identity := identityFrom(c)
	session := sessionFrom(c)

	return c.JSON(envelope{
		Success: true,
		User:    summary(identity, session.GetImpersonatedBy()),
	})
}

func (s *Server) impersonate(c *fiber.Ctx) error {
	token, target, err := s.deps.Auth.Impersonate(c.UserContext(), sessionFrom(c), c.Params("userId"))
	if err != nil {
		return err
	}

	return c.JSON(envelope{
		Success: true,
		Token:   token,
		User:    summary(target, identityFrom(c).ID()),
	})
}

func (s *Server) stopImpersonation(c *fiber.Ctx) error {
	token, admin, err := s.deps.Auth.StopImpersonation(c.UserContext(), sessionFrom(c))
	if err != nil {
		return err
	}

	return c.JSON(envelope{
		Success: true,
		Token:   token,
		User:    summary(admin, ""),
	})
}
