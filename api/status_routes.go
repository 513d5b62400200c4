package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/goliatone/go-tiltguard/guideaccess"
)

type activatePayload struct {
	Duration string `json:"duration"`
}

type extensionPayload struct {
	ExtensionID string `json:"extensionId"`
}

func (s *Server) blockingStatus(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	status, err := s.deps.Blocking.Status(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(envelope{Success: true, Data: newBlockingView(status)})
}

func (s *Server) blockingActivate(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var payload activatePayload
	if err := c.BodyParser(&payload); err != nil {
		return badPayloadError(err)
	}

	status, err := s.deps.Blocking.Activate(c.UserContext(), userID, payload.Duration)
	if err != nil {
		return err
	}
	return c.JSON(envelope{Success: true, Data: newBlockingView(status)})
}

type guideFunc func(ctx context.Context, userID uuid.UUID) (guideaccess.Status, error)

func (s *Server) guideAction(c *fiber.Ctx, fn guideFunc) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	status, err := fn(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(envelope{Success: true, Data: newGuideView(status)})
}

func (s *Server) guideStatus(c *fiber.Ctx) error {
	return s.guideAction(c, s.deps.Guide.Status)
}

func (s *Server) guideCompleteSetup(c *fiber.Ctx) error {
	return s.guideAction(c, s.deps.Guide.CompleteSetup)
}

func (s *Server) guideRequestAccess(c *fiber.Ctx) error {
	return s.guideAction(c, s.deps.Guide.RequestAccess)
}

func (s *Server) guideUndoSetup(c *fiber.Ctx) error {
	return s.guideAction(c, s.deps.Guide.UndoSetup)
}

func (s *Server) guideRegisterExtension(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var payload extensionPayload
	if err := c.BodyParser(&payload); err != nil {
		return badPayloadError(err)
	}

	if err := s.deps.Guide.RegisterExtension(c.UserContext(), userID, payload.ExtensionID); err != nil {
		return err
	}
	return c.JSON(envelope{Success: true})
}
