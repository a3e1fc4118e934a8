// pkg/geocode/geocode.go
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ErrNoResult is returned when the provider finds nothing for an address.
var ErrNoResult = errors.New("no geocoding result")

// Result is a resolved coordinate pair.
type Result struct {
	Latitude  float64
	Longitude float64
}

// Geocoder resolves a formatted address into coordinates. Import callers
// must swallow failures: a geocoding error never aborts a row.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

// Func adapts a plain function to the Geocoder interface.
type Func func(ctx context.Context, address string) (Result, error)

// Geocode implements Geocoder.
func (f Func) Geocode(ctx context.Context, address string) (Result, error) {
	return f(ctx, address)
}

// NominatimClient queries a Nominatim-compatible search endpoint.
type NominatimClient struct {
	endpoint  string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// NewNominatimClient creates a client for the given search endpoint.
func NewNominatimClient(endpoint, userAgent string, timeout time.Duration, logger *zap.Logger) *NominatimClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NominatimClient{
		endpoint:  endpoint,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Geocode resolves the first search result for the address.
func (c *NominatimClient) Geocode(ctx context.Context, address string) (Result, error) {
	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("geocoding request failed: unexpected status %s", resp.Status)
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return Result{}, fmt.Errorf("failed to decode geocoding response: %w", err)
	}
	if len(hits) == 0 {
		return Result{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("invalid latitude in geocoding response: %w", err)
	}
	lng, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("invalid longitude in geocoding response: %w", err)
	}

	c.logger.Debug("Geocoded address",
		zap.String("address", address),
		zap.Float64("latitude", lat),
		zap.Float64("longitude", lng))

	return Result{Latitude: lat, Longitude: lng}, nil
}

// Disabled returns a geocoder that always fails with ErrNoResult. Used when
// no provider is configured.
func Disabled() Geocoder {
	return Func(func(ctx context.Context, address string) (Result, error) {
		return Result{}, ErrNoResult
	})
}
