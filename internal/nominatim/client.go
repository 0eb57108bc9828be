package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backend-heggeo/internal/shared/geo"
)

var ErrNoAddress = errors.New("no address for coordinates")

// Client talks to a Nominatim instance. Every request carries the
// configured User-Agent as the usage policy requires.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func New(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (p place) toPlace() (geo.Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return geo.Place{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return geo.Place{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return geo.Place{Latitude: lat, Longitude: lon, DisplayName: p.DisplayName}, nil
}

// Search runs a forward lookup and returns at most one hit.
func (c *Client) Search(ctx context.Context, text string) ([]geo.Place, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("addressdetails", "1")

	var hits []place
	if err := c.get(ctx, "/search", q, &hits); err != nil {
		return nil, err
	}
	places := make([]geo.Place, 0, len(hits))
	for _, h := range hits {
		p, err := h.toPlace()
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, nil
}

func (c *Client) Reverse(ctx context.Context, lat, lon float64) (geo.Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	var hit place
	if err := c.get(ctx, "/reverse", q, &hit); err != nil {
		return geo.Place{}, err
	}
	if hit.Error != "" {
		return geo.Place{}, fmt.Errorf("%w: %s", ErrNoAddress, hit.Error)
	}
	if hit.DisplayName == "" {
		return geo.Place{}, ErrNoAddress
	}
	return geo.Place{Latitude: lat, Longitude: lon, DisplayName: hit.DisplayName}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode nominatim %s: %w", path, err)
	}
	return nil
}
