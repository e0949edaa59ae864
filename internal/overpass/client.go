// Package overpass queries the Overpass API for the administrative boundary
// relations enclosing a point, with throttling retries and a permanent cache.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/malariagen/obsetl/internal/geo"

	"github.com/rs/zerolog/log"
)

// API Docs: https://wiki.openstreetmap.org/wiki/Overpass_API/Overpass_QL#is_in
const DefaultURL = "http://overpass-api.de/api/interpreter"

// StatusError is a non-retryable HTTP failure from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("overpass returned status %d: %s", e.Code, e.Body)
}

// Client fetches boundary relations. It is meant for sequential use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      Cache
	retry      RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for queries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another interpreter endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithCache sets the relation cache.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithRetryPolicy sets the throttling retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient returns a client for the public Overpass instance with an
// in-memory cache and the unbounded default retry policy.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 3 * time.Minute},
		baseURL:    DefaultURL,
		cache:      NewMemoryCache(),
		retry:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry = c.retry.withDefaults()

	return c
}

// Query builds the Overpass QL asking for admin levels 3 to 6 enclosing pt.
func Query(pt geo.Point) string {
	return fmt.Sprintf(
		`[out:json];is_in(%s,%s);relation(pivot)[boundary=administrative][admin_level~"^[3456]$"];out geom;`,
		strconv.FormatFloat(pt.Lat, 'f', -1, 64),
		strconv.FormatFloat(pt.Lng, 'f', -1, 64))
}

// Fetch returns the boundary relations enclosing pt, from cache when possible.
func (c *Client) Fetch(ctx context.Context, pt geo.Point) ([]Relation, error) {
	key := pt.Key()

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Trace().Str("key", key).Msg("Boundary cache hit")
		return decodeCached(key, raw)
	}

	raw, err = c.query(ctx, pt)
	if err != nil {
		return nil, fmt.Errorf("fetch boundaries for %s: %w", key, err)
	}

	rels, err := DecodeElements(raw)
	if err != nil {
		return nil, fmt.Errorf("decode boundaries for %s: %w", key, err)
	}

	if err := c.cache.Set(ctx, key, raw); err != nil {
		return nil, err
	}

	log.Debug().
		Str("key", key).
		Int("relations", len(rels)).
		Msg("Boundaries fetched")

	return rels, nil
}

func decodeCached(key string, raw []byte) ([]Relation, error) {
	rels, err := DecodeElements(raw)
	if err != nil {
		return nil, fmt.Errorf("decode cached boundaries for %s: %w", key, err)
	}
	return rels, nil
}

// query sends the request, sleeping and retrying while the service throttles.
func (c *Client) query(ctx context.Context, pt geo.Point) ([]byte, error) {
	q := Query(pt)
	wait := c.retry.Initial

	for attempt := 1; ; attempt++ {
		raw, status, err := c.do(ctx, q)
		if err != nil {
			return nil, err
		}
		if !retryable(status) {
			return raw, nil
		}

		if c.retry.exhausted(attempt) {
			return nil, fmt.Errorf("%w after %d attempts (last status %d)", ErrRetriesExhausted, attempt, status)
		}

		log.Warn().
			Int("status", status).
			Int("attempt", attempt).
			Dur("sleep", wait).
			Msg("Too many Overpass requests, backing off")

		if err := c.retry.Sleep(ctx, wait); err != nil {
			return nil, err
		}
		wait = c.retry.Backoff(wait)
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusGatewayTimeout
}

// do performs one request. A retryable status is reported with a nil body and error.
func (c *Client) do(ctx context.Context, q string) ([]byte, int, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse base URL: %w", err)
	}
	params := u.Query()
	params.Set("data", q)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if retryable(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		Elements json.RawMessage `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(payload.Elements) == 0 || string(payload.Elements) == "null" {
		payload.Elements = json.RawMessage("[]")
	}

	return payload.Elements, resp.StatusCode, nil
}
