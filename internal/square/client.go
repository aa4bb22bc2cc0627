package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/foodtruck/salesync/internal/domain"
)

// APIError is a non-2xx response from the Square API. The status and body
// are carried verbatim so the run outcome can echo them.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("square api: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Square commerce API. All calls share one bearer token
// and API version header, and are throttled by a client-side rate limiter.
type Client struct {
	baseURL string
	token   string
	version string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Square API client. requestsPerSecond bounds outbound
// call rate across locations and pages within a run.
func NewClient(baseURL, token, version string, requestsPerSecond float64) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		version: version,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type locationsResponse struct {
	Locations []domain.Location `json:"locations"`
}

// ListLocations fetches all point-of-sale locations for the business.
func (c *Client) ListLocations(ctx context.Context) ([]domain.Location, error) {
	var out locationsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/locations", nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

type searchOrdersRequest struct {
	LocationIDs []string    `json:"location_ids"`
	Query       searchQuery `json:"query"`
	Cursor      string      `json:"cursor,omitempty"`
}

type searchQuery struct {
	Filter searchFilter `json:"filter"`
}

type searchFilter struct {
	DateTimeFilter dateTimeFilter `json:"date_time_filter"`
}

type dateTimeFilter struct {
	CreatedAt timeRange `json:"created_at"`
}

type timeRange struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

type searchOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
	Cursor string         `json:"cursor"`
}

// SearchOrders returns one page of orders created within [windowStart,
// windowEnd) at the given location, plus the cursor for the next page.
// An empty returned cursor means the paginated set is exhausted. Pass the
// previous call's cursor to continue; empty for the first page.
func (c *Client) SearchOrders(ctx context.Context, locationID, windowStart, windowEnd, cursor string) ([]domain.Order, string, error) {
	req := searchOrdersRequest{
		LocationIDs: []string{locationID},
		Query: searchQuery{
			Filter: searchFilter{
				DateTimeFilter: dateTimeFilter{
					CreatedAt: timeRange{StartAt: windowStart, EndAt: windowEnd},
				},
			},
		},
		Cursor: cursor,
	}

	var out searchOrdersResponse
	if err := c.do(ctx, http.MethodPost, "/v2/orders/search", &req, &out); err != nil {
		return nil, "", err
	}
	return out.Orders, out.Cursor, nil
}

// do performs one API call. Any non-2xx response becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Square-Version", c.version)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
