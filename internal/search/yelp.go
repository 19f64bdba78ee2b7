package search

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

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"restaurantfinder/internal/metrics"
	"restaurantfinder/internal/model"
)

const yelpAPIBase = "https://api.yelp.com/v3"

const (
	defaultRate  = 5
	defaultBurst = 5
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("API error: status %d: %s: %s", e.Status, e.Code, e.Description)
	case e.Description != "":
		return fmt.Sprintf("API error: status %d: %s", e.Status, e.Description)
	default:
		return fmt.Sprintf("API error: status %d", e.Status)
	}
}

// Client wraps the Yelp Fusion API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the client-side request budget.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithMetrics records request outcomes and latency.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// NewClient creates a new Yelp Fusion API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    yelpAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(defaultRate), defaultBurst),
		metrics:    metrics.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a business search.
func (c *Client) Search(ctx context.Context, p model.SearchParams) (model.SearchResponse, error) {
	var result model.SearchResponse
	if err := c.get(ctx, "search", "/businesses/search", searchQuery(p), &result); err != nil {
		return model.SearchResponse{}, err
	}
	return result, nil
}

// BusinessDetails fetches full details for a business by its Yelp ID.
func (c *Client) BusinessDetails(ctx context.Context, id string) (model.BusinessDetail, error) {
	var result model.BusinessDetail
	if err := c.get(ctx, "details", "/businesses/"+url.PathEscape(id), nil, &result); err != nil {
		return model.BusinessDetail{}, err
	}
	return result, nil
}

// Reviews fetches up to limit reviews for a business.
func (c *Client) Reviews(ctx context.Context, id string, limit int) (model.ReviewsResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result model.ReviewsResponse
	if err := c.get(ctx, "reviews", "/businesses/"+url.PathEscape(id)+"/reviews", params, &result); err != nil {
		return model.ReviewsResponse{}, err
	}
	return result, nil
}

func searchQuery(p model.SearchParams) url.Values {
	params := url.Values{}
	if p.Term != "" {
		params.Set("term", p.Term)
	}
	if p.Location != "" {
		params.Set("location", p.Location)
	}
	if p.Latitude != nil {
		params.Set("latitude", strconv.FormatFloat(*p.Latitude, 'f', -1, 64))
	}
	if p.Longitude != nil {
		params.Set("longitude", strconv.FormatFloat(*p.Longitude, 'f', -1, 64))
	}
	if p.Radius != nil {
		params.Set("radius", strconv.Itoa(*p.Radius))
	}
	if p.Categories != "" {
		params.Set("categories", p.Categories)
	}
	if p.Price != "" {
		params.Set("price", p.Price)
	}
	if p.SortBy != "" {
		params.Set("sort_by", p.SortBy)
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		params.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.OpenNow != nil {
		params.Set("open_now", strconv.FormatBool(*p.OpenNow))
	}
	return params
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveGateway(op, err == nil, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	// Yelp Fusion API authentication
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("JSON decode error: %w", err)
	}

	return nil
}

// apiError extracts the error object from a Yelp error body:
// {"error": {"code": "...", "description": "..."}}
func apiError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	if gjson.ValidBytes(body) {
		e.Code = gjson.GetBytes(body, "error.code").String()
		e.Description = gjson.GetBytes(body, "error.description").String()
	}
	return e
}
