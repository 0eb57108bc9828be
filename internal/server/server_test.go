package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-heggeo/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

func testConfig(providerURL string) config.Config {
	return config.Config{
		JWTSecret:       "secret",
		ServerPort:      ":0",
		NominatimURL:    providerURL,
		OSRMURL:         providerURL,
		ProviderTimeout: time.Second,
		LocationTTL:     time.Minute,
		AppLink:         "https://app",
	}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"kind":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoute(t *testing.T) {
	s := NewServer(testConfig("http://127.0.0.1:1"), nil, nil, zerolog.Nop())
	defer s.Close()

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestMarkerFlowThroughServer(t *testing.T) {
	providers := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"display_name":"Somewhere"}`))
	}))
	defer providers.Close()

	s := NewServer(testConfig(providers.URL), nil, nil, zerolog.Nop())
	defer s.Close()
	auth := bearer(t, "user-1")

	do := func(method, path, body string) *http.Response {
		req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", auth)
		resp, err := s.App.Test(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		return resp
	}

	if resp := do(http.MethodPost, "/markers/", `{}`); resp.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 without location, got %d", resp.StatusCode)
	}
	if resp := do(http.MethodPut, "/location/", `{"latitude":40.7128,"longitude":-74.006}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("report location status %d", resp.StatusCode)
	}
	if resp := do(http.MethodPost, "/markers/", `{"lifespan_minutes":5}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create marker status %d", resp.StatusCode)
	}
	if resp := do(http.MethodPost, "/markers/", `{"no_expiry":true}`); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp := do(http.MethodPost, "/share/marker", `{"message":"here"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("share status %d", resp.StatusCode)
	}
	var link map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&link)
	if link["location_text"] != "Somewhere" {
		t.Fatalf("unexpected share link %+v", link)
	}

	if resp := do(http.MethodDelete, "/markers/active", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodPost, "/markers/", nil)
	if resp, _ := s.App.Test(req); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("markers require a token")
	}
}

func TestJourneyRouteMounted(t *testing.T) {
	s := NewServer(testConfig("http://127.0.0.1:1"), nil, nil, zerolog.Nop())
	defer s.Close()

	req := httptest.NewRequest(http.MethodPost, "/journeys/", bytes.NewReader([]byte(`{"source":"","destination":""}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing input: %v", err)
	}
}
