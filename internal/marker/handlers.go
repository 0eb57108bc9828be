package marker

import (
	"context"
	"errors"
	"time"

	"backend-heggeo/internal/auth"
	"backend-heggeo/internal/location"
	"backend-heggeo/internal/shared/geo"
	"backend-heggeo/internal/storage"

	"github.com/gofiber/fiber/v2"
)

const (
	EventCreated = "marker.created"
	EventCleared = "marker.cleared"
	EventExpired = "marker.expired"
)

type Locator interface {
	Current(ctx context.Context, owner string) (geo.Point, error)
}

type PhotoUploader interface {
	Upload(ctx context.Context, owner, fileName, kind string) (storage.Object, error)
}

type Notifier interface {
	PublishEvent(owner, kind string, payload any)
}

type Handlers struct {
	Registry  *Registry
	Locations Locator
	Photos    PhotoUploader
	Events    Notifier
	Now       func() time.Time
}

type createRequest struct {
	LifespanMinutes int      `json:"lifespan_minutes"`
	NoExpiry        bool     `json:"no_expiry"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

type View struct {
	Geo         Marker     `json:"geo"`
	ExpiresAt   *time.Time `json:"expires_at"`
	RemainingMs *int64     `json:"remaining_ms"`
	DistanceM   *float64   `json:"distance_from_you_m,omitempty"`
}

func RegisterRoutes(r fiber.Router, h *Handlers, authMiddleware fiber.Handler) {
	if h.Now == nil {
		h.Now = time.Now
	}

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req createRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		lifespan, err := LifespanFromMinutes(req.LifespanMinutes, req.NoExpiry)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		owner := auth.UserID(c)
		loc, err := h.resolveLocation(c.Context(), owner, req)
		if err != nil {
			return err
		}

		mgr := h.Registry.Get(c.Context(), owner)
		defer h.Registry.Release(owner)
		created, err := mgr.Create(c.Context(), loc, lifespan)
		switch {
		case errors.Is(err, location.ErrNoLocation):
			return fiber.NewError(fiber.StatusPreconditionFailed, "cannot drop a geo without your current location")
		case errors.Is(err, ErrAlreadyActive):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		h.publish(owner, EventCreated, created)
		return c.Status(fiber.StatusCreated).JSON(h.view(c.Context(), owner, created))
	})

	r.Get("/active", authMiddleware, func(c *fiber.Ctx) error {
		owner := auth.UserID(c)
		active := h.Registry.Get(c.Context(), owner).Active(c.Context())
		h.Registry.Release(owner)
		if active == nil {
			return fiber.NewError(fiber.StatusNotFound, ErrNoActiveMarker.Error())
		}
		return c.JSON(h.view(c.Context(), owner, *active))
	})

	r.Delete("/active", authMiddleware, func(c *fiber.Ctx) error {
		owner := auth.UserID(c)
		mgr := h.Registry.Get(c.Context(), owner)
		defer h.Registry.Release(owner)
		previous := mgr.Active(c.Context())
		if mgr.Clear(c.Context()) && previous != nil {
			h.publish(owner, EventCleared, *previous)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/active/photo", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			FileName string `json:"file_name"`
		}
		_ = c.BodyParser(&body)
		if body.FileName == "" {
			body.FileName = "geo-photo.jpg"
		}

		owner := auth.UserID(c)
		mgr := h.Registry.Get(c.Context(), owner)
		defer h.Registry.Release(owner)
		if mgr.Active(c.Context()) == nil {
			return fiber.NewError(fiber.StatusNotFound, ErrNoActiveMarker.Error())
		}
		obj, err := h.Photos.Upload(c.Context(), owner, body.FileName, "geo_photo")
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		updated, err := mgr.AttachPhoto(c.Context(), obj.URL)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(fiber.Map{"geo": updated, "upload": obj})
	})
}

func (h *Handlers) resolveLocation(ctx context.Context, owner string, req createRequest) (*geo.Point, error) {
	if req.Latitude != nil && req.Longitude != nil {
		if !geo.ValidLatLon(*req.Latitude, *req.Longitude) {
			return nil, fiber.NewError(fiber.StatusBadRequest, location.ErrInvalidCoordinates.Error())
		}
		return &geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}, nil
	}
	if h.Locations == nil {
		return nil, nil
	}
	p, err := h.Locations.Current(ctx, owner)
	if errors.Is(err, location.ErrNoLocation) {
		return nil, nil
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return &p, nil
}

func (h *Handlers) view(ctx context.Context, owner string, m Marker) View {
	v := View{Geo: m}
	if at, ok := m.ExpiresAt(); ok {
		left, _ := Remaining(m, h.Now())
		ms := left.Milliseconds()
		v.ExpiresAt = &at
		v.RemainingMs = &ms
	}
	if h.Locations != nil {
		if p, err := h.Locations.Current(ctx, owner); err == nil {
			d := geo.HaversineKm(p.Latitude, p.Longitude, m.Latitude, m.Longitude) * 1000
			v.DistanceM = &d
		}
	}
	return v
}

func (h *Handlers) publish(owner, kind string, m Marker) {
	if h.Events != nil {
		h.Events.PublishEvent(owner, kind, m)
	}
}
