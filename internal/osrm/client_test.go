package osrm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend-heggeo/internal/shared/geo"
)

var (
	nyc   = geo.Point{Latitude: 40.7128, Longitude: -74.006}
	paris = geo.Point{Latitude: 48.8566, Longitude: 2.3522}
)

func TestRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/route/v1/driving/-74.006,40.7128;2.3522,48.8566" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.RawQuery != "overview=false&alternatives=false&steps=false&annotations=false" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":1234.5,"duration":600.4},{"distance":1,"duration":1}]}`))
	}))
	defer srv.Close()

	dirs, err := New(srv.URL, "ua", time.Second).Route(context.Background(), nyc, paris)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if dirs.Code != "Ok" || len(dirs.Routes) != 2 || dirs.Routes[0].DistanceMeters != 1234.5 {
		t.Fatalf("unexpected directions %+v", dirs)
	}
}

func TestRouteProviderCodeOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
	}))
	defer srv.Close()

	dirs, err := New(srv.URL, "", time.Second).Route(context.Background(), nyc, paris)
	if err != nil {
		t.Fatalf("provider code must not be a transport error: %v", err)
	}
	if dirs.Code != "NoRoute" || dirs.Message != "Impossible route between points" || len(dirs.Routes) != 0 {
		t.Fatalf("unexpected directions %+v", dirs)
	}
}

func TestRouteFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Case") == "html" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	if _, err := c.Route(context.Background(), nyc, paris); err == nil {
		t.Fatalf("expected error for response without code")
	}

	c.httpClient.Transport = headerTransport{"X-Case", "html"}
	if _, err := c.Route(context.Background(), nyc, paris); err == nil {
		t.Fatalf("expected error for non-json error status")
	}

	srv.Close()
	if _, err := New(srv.URL, "", time.Second).Route(context.Background(), nyc, paris); err == nil {
		t.Fatalf("expected transport error")
	}
}

type headerTransport struct{ key, value string }

func (h headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set(h.key, h.value)
	return http.DefaultTransport.RoundTrip(r)
}
