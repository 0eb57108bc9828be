package sos

import (
	"context"
	"errors"

	"backend-heggeo/internal/auth"
	"backend-heggeo/internal/location"
	"backend-heggeo/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

type Locator interface {
	Current(ctx context.Context, owner string) (geo.Point, error)
}

type triggerRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func RegisterRoutes(r fiber.Router, svc *Service, locations Locator, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		configs, err := svc.List(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(configs)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var in Input
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		cfg, err := svc.Create(c.Context(), auth.UserID(c), in)
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(cfg)
	})

	r.Get("/default", authMiddleware, func(c *fiber.Ctx) error {
		cfg, err := svc.Default(c.Context(), auth.UserID(c))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(cfg)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var in Input
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		cfg, err := svc.Update(c.Context(), auth.UserID(c), c.Params("id"), in)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(cfg)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/default", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.SetDefault(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/trigger", authMiddleware, func(c *fiber.Ctx) error {
		var req triggerRequest
		_ = c.BodyParser(&req)

		owner := auth.UserID(c)
		var loc *geo.Point
		switch {
		case req.Latitude != nil && req.Longitude != nil:
			if !geo.ValidLatLon(*req.Latitude, *req.Longitude) {
				return fiber.NewError(fiber.StatusBadRequest, location.ErrInvalidCoordinates.Error())
			}
			loc = &geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
		case locations != nil:
			if p, err := locations.Current(c.Context(), owner); err == nil {
				loc = &p
			}
		}

		alert, err := svc.Trigger(c.Context(), owner, loc)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(alert)
	})
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoDefault):
		return fiber.NewError(fiber.StatusPreconditionFailed, err.Error())
	case errors.Is(err, location.ErrNoLocation):
		return fiber.NewError(fiber.StatusPreconditionFailed, "could not get your current location for sos")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
