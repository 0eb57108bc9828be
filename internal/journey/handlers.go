package journey

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type lookupRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type lookupResponse struct {
	Result
	Distance string `json:"distance"`
	Duration string `json:"duration"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Side  Side   `json:"side,omitempty"`
	Input string `json:"input,omitempty"`
}

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req lookupRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}

		result, err := svc.Lookup(c.Context(), req.Source, req.Destination)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(lookupResponse{
			Result:   result,
			Distance: FormatDistance(result.DistanceMeters),
			Duration: FormatDuration(result.DurationSeconds),
		})
	})
}

func writeError(c *fiber.Ctx, err error) error {
	var jerr *Error
	if !errors.As(err, &jerr) {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	status, kind := fiber.StatusInternalServerError, "internal"
	switch {
	case errors.Is(jerr, ErrMissingInput):
		status, kind = fiber.StatusBadRequest, "missing_input"
	case errors.Is(jerr, ErrUnresolvedLocation):
		status, kind = fiber.StatusUnprocessableEntity, "unresolved_location"
	case errors.Is(jerr, ErrNoRoute):
		status, kind = fiber.StatusNotFound, "no_route"
	case errors.Is(jerr, ErrTransportFailure):
		status, kind = fiber.StatusBadGateway, "transport_failure"
	}
	return c.Status(status).JSON(errorResponse{
		Error: jerr.Message,
		Kind:  kind,
		Side:  jerr.Side,
		Input: jerr.Input,
	})
}
