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

	pkgerrors "github.com/grmc/storefront-backend/pkg/errors"
)

const (
	defaultBaseURL        = "https://nominatim.openstreetmap.org"
	defaultUserAgent      = "grmc-storefront/1.0"
	defaultSearchLimit    = 5
	responseBodyReadLimit = 1024
)

// Client wraps the Nominatim reverse and forward geocoding endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	language   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Nominatim base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithUserAgent sets the User-Agent Nominatim requires for identification.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = strings.TrimSpace(ua)
		}
	}
}

// WithLanguage sets the accept-language hint, e.g. "ar".
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(lang)
	}
}

// WithTimeout sets the HTTP timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 && c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Place is a single geocoding match.
type Place struct {
	DisplayName string  `json:"display_name"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
}

// Reverse resolves coordinates to a human readable address.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "geocode client not configured")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var apiResp struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := c.get(ctx, "/reverse", q, &apiResp); err != nil {
		return "", err
	}
	if apiResp.Error != "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, apiResp.Error)
	}
	name := strings.TrimSpace(apiResp.DisplayName)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no address for coordinates")
	}
	return name, nil
}

// Search runs a forward lookup for the free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geocode client not configured")
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", trimmed)
	q.Set("limit", strconv.Itoa(defaultSearchLimit))

	var apiResp []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := c.get(ctx, "/search", q, &apiResp); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(apiResp))
	for _, r := range apiResp {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lng, errLng := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		places = append(places, Place{DisplayName: r.DisplayName, Latitude: lat, Longitude: lng})
	}
	return places, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.language != "" {
		q.Set("accept-language", c.language)
	}
	endpoint := fmt.Sprintf("%s%s?%s", strings.TrimRight(c.baseURL, "/"), path, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build geocode request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "geocode request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode geocode response")
	}
	return nil
}
