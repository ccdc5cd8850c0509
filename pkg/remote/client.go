// Package remote fetches live pollution data from an HTTP data source.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/overlay"
)

// ErrFetch wraps every failure to obtain live data.
var ErrFetch = errors.New("live data fetch failed")

// maxBodyBytes caps the response read so a misbehaving source cannot exhaust memory.
const maxBodyBytes = 16 << 20

// PollutionResponse is the payload of GET /pollution.
type PollutionResponse struct {
	PollutionGrid      []models.LiveDataPoint `json:"pollution_grid"`
	MonitoringStations []models.Station       `json:"monitoring_stations"`
}

// Client talks to a remote pollution endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL, e.g. "http://localhost:8080".
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Fetch requests live data around center.
func (c *Client) Fetch(ctx context.Context, center models.Location) (*overlay.LiveData, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(center.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(center.Lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pollution?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	var payload PollutionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrFetch, err)
	}

	return &overlay.LiveData{
		Points:   payload.PollutionGrid,
		Stations: payload.MonitoringStations,
	}, nil
}
