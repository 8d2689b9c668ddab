// Package geocode is a reverse geocoding client for Nominatim-compatible APIs.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxBody = 1 << 20

// Config holds reverse geocoder settings.
type Config struct {
	ReverseURL string
	UserAgent  string
	Timeout    time.Duration
}

// Client calls a /reverse endpoint and formats a short "City, Region" label.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
}

// NewClient creates a reverse geocoding client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		endpoint:  cfg.ReverseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Suburb      string `json:"suburb"`
		County      string `json:"county"`
		State       string `json:"state"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// Reverse returns a label for the coordinates, or "" when the service knows nothing there.
func (c *Client) Reverse(ctx context.Context, lat, long float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("zoom", "10")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(long, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var rr reverseResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if rr.Error != "" {
		return "", nil
	}
	return format(rr), nil
}

func format(rr reverseResponse) string {
	a := rr.Address
	place := firstNonEmpty(a.City, a.Town, a.Village, a.Suburb, a.County)
	region := a.State
	if region == "" {
		region = strings.ToUpper(a.CountryCode)
	}
	if region == "" {
		region = a.Country
	}
	switch {
	case place != "" && region != "":
		return place + ", " + region
	case place != "":
		return place
	default:
		return region
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
