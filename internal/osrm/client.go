package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend-heggeo/internal/shared/geo"
)

const routeQuery = "overview=false&alternatives=false&steps=false&annotations=false"

// Client asks an OSRM server for driving routes. Only aggregate distance and
// duration are requested.
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

type response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Route returns the provider answer as is. OSRM reports NoRoute and
// InvalidQuery with a 4xx status and a JSON code, which is passed through
// rather than treated as a transport error.
func (c *Client) Route(ctx context.Context, from, to geo.Point) (geo.Directions, error) {
	endpoint := c.baseURL + "/route/v1/driving/" + coord(from) + ";" + coord(to) + "?" + routeQuery
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return geo.Directions{}, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geo.Directions{}, fmt.Errorf("osrm route request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return geo.Directions{}, fmt.Errorf("read osrm response: %w", err)
	}
	var out response
	if err := json.Unmarshal(body, &out); err != nil || out.Code == "" {
		if resp.StatusCode != http.StatusOK {
			return geo.Directions{}, fmt.Errorf("osrm route returned status %d", resp.StatusCode)
		}
		if err == nil {
			err = errors.New("missing code")
		}
		return geo.Directions{}, fmt.Errorf("decode osrm response: %w", err)
	}

	dirs := geo.Directions{Code: out.Code, Message: out.Message}
	for _, r := range out.Routes {
		dirs.Routes = append(dirs.Routes, geo.Route{DistanceMeters: r.Distance, DurationSeconds: r.Duration})
	}
	return dirs, nil
}

func coord(p geo.Point) string {
	return strconv.FormatFloat(p.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Latitude, 'f', -1, 64)
}
