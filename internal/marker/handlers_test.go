package marker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-heggeo/internal/location"
	"backend-heggeo/internal/shared/geo"
	"backend-heggeo/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

func withUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		return c.Next()
	}
}

type stubLocator struct {
	point *geo.Point
}

func (s *stubLocator) Current(context.Context, string) (geo.Point, error) {
	if s.point == nil {
		return geo.Point{}, location.ErrNoLocation
	}
	return *s.point, nil
}

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, owner, fileName, kind string) (storage.Object, error) {
	return storage.Object{ID: "obj-1", URL: storage.ObjectURL("https://cdn", owner, fileName), Kind: kind}, nil
}

type recordedEvent struct {
	owner, kind string
}

type stubNotifier struct {
	events []recordedEvent
}

func (s *stubNotifier) PublishEvent(owner, kind string, _ any) {
	s.events = append(s.events, recordedEvent{owner, kind})
}

func newMarkerApp(loc *stubLocator, events Notifier) *fiber.App {
	app := fiber.New()
	h := &Handlers{
		Registry:  NewRegistry(NewMemoryStore(), zerolog.Nop()),
		Locations: loc,
		Photos:    stubUploader{},
		Events:    events,
	}
	RegisterRoutes(app.Group("/geos"), h, withUser("user-1"))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestMarkerHandlersLifecycle(t *testing.T) {
	loc := &stubLocator{point: &geo.Point{Latitude: 40.7128, Longitude: -74.006}}
	events := &stubNotifier{}
	app := newMarkerApp(loc, events)

	resp := doJSON(t, app, http.MethodGet, "/geos/active", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before drop, got %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodPost, "/geos/", `{"lifespan_minutes":30}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var view struct {
		Geo struct {
			ID         string   `json:"id"`
			Latitude   float64  `json:"latitude"`
			LifespanMs *float64 `json:"lifespanMs"`
		} `json:"geo"`
		RemainingMs *int64   `json:"remaining_ms"`
		DistanceM   *float64 `json:"distance_from_you_m"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Geo.ID == "" || view.Geo.Latitude != 40.7128 {
		t.Fatalf("unexpected geo: %+v", view.Geo)
	}
	if view.Geo.LifespanMs == nil || *view.Geo.LifespanMs != 1_800_000 {
		t.Fatalf("expected 30m lifespan")
	}
	if view.RemainingMs == nil || view.DistanceM == nil || *view.DistanceM > 1 {
		t.Fatalf("expected countdown and zero distance")
	}

	resp = doJSON(t, app, http.MethodPost, "/geos/", `{"no_expiry":true}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while active, got %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodPost, "/geos/active/photo", `{"file_name":"me.jpg"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("photo status %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodDelete, "/geos/active", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = doJSON(t, app, http.MethodDelete, "/geos/active", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear must be idempotent, got %d", resp.StatusCode)
	}

	if len(events.events) != 2 || events.events[0].kind != EventCreated || events.events[1].kind != EventCleared {
		t.Fatalf("unexpected events: %+v", events.events)
	}
}

func TestMarkerHandlersNoLocation(t *testing.T) {
	app := newMarkerApp(&stubLocator{}, &stubNotifier{})

	resp := doJSON(t, app, http.MethodPost, "/geos/", `{}`)
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodPost, "/geos/", `{"latitude":48.8566,"longitude":2.3522,"no_expiry":true}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("explicit coordinates must be accepted, got %d", resp.StatusCode)
	}
}

func TestMarkerHandlersValidation(t *testing.T) {
	app := newMarkerApp(&stubLocator{point: &geo.Point{}}, nil)

	cases := []string{
		`{"lifespan_minutes":1}`,
		`{"lifespan_minutes":500}`,
		`{"latitude":91,"longitude":0}`,
		`{`,
	}
	for _, body := range cases {
		resp := doJSON(t, app, http.MethodPost, "/geos/", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}

	resp := doJSON(t, app, http.MethodPost, "/geos/active/photo", `{}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("photo without geo must 404, got %d", resp.StatusCode)
	}
}
