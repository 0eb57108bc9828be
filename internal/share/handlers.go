package share

import (
	"backend-heggeo/internal/auth"
	"backend-heggeo/internal/marker"
	"backend-heggeo/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, markers *marker.Registry, authMiddleware fiber.Handler) {
	r.Post("/marker", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Message string `json:"message"`
		}
		_ = c.BodyParser(&body)

		owner := auth.UserID(c)
		active := markers.Get(c.Context(), owner).Active(c.Context())
		markers.Release(owner)
		if active == nil {
			return fiber.NewError(fiber.StatusNotFound, marker.ErrNoActiveMarker.Error())
		}
		link := svc.MarkerLink(c.Context(), geo.Point{Latitude: active.Latitude, Longitude: active.Longitude}, body.Message)
		return c.JSON(link)
	})
}
