package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/users"
)

func (s *Server) listUsers(c *fiber.Ctx) error {
	records, err := s.deps.Users.List(c.UserContext(), identityFrom(c))
	if err != nil {
		return err
	}

	count := len(records)
	return c.JSON(envelope{Success: true, Count: &count, Data: newUserViews(records)})
}

func (s *Server) getUser(c *fiber.Ctx) error {
	id, err := auth.ParseUserID(c.Params("id"))
	if err != nil {
		return err
	}

	user, err := s.deps.Users.Get(c.UserContext(), identityFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(envelope{Success: true, Data: newUserView(user)})
}

func (s *Server) createUser(c *fiber.Ctx) error {
	var payload users.CreateUserMessage
	if err := c.BodyParser(&payload); err != nil {
		return badPayloadError(err)
	}

	user, err := s.deps.Users.Create(c.UserContext(), identityFrom(c), payload)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(envelope{Success: true, Data: newUserView(user)})
}

func (s *Server) updateUser(c *fiber.Ctx) error {
	id, err := auth.ParseUserID(c.Params("id"))
	if err != nil {
		return err
	}

	var payload users.UpdateUserMessage
	if err := c.BodyParser(&payload); err != nil {
		return badPayloadError(err)
	}

	user, err := s.deps.Users.Update(c.UserContext(), identityFrom(c), id, payload)
	if err != nil {
		return err
	}
	return c.JSON(envelope{Success: true, Data: newUserView(user)})
}

func (s *Server) deleteUser(c *fiber.Ctx) error {
	id, err := auth.ParseUserID(c.Params("id"))
	if err != nil {
		return err
	}

	if err := s.deps.Users.Delete(c.UserContext(), identityFrom(c), id); err != nil {
		return err
	}
	return c.JSON(envelope{Success: true, Message: "user deleted"})
}
