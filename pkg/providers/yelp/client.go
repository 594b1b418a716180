// Package yelp fetches leads from the Yelp Fusion business search API.
package yelp

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

	"golang.org/x/time/rate"

	"github.com/ideasdevops/lead-ia/pkg/enums"
	"github.com/ideasdevops/lead-ia/pkg/providers"
)

const (
	DefaultBaseURL   = "https://api.yelp.com/v3"
	DefaultRateLimit = 5

	searchLimit             = 50
	responseReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("yelp api key is required")

// Client calls /businesses/search behind a client-side rate limiter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRateLimit sets the requests-per-second budget.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     key,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type business struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	DisplayPhone string `json:"display_phone"`
	Categories   []struct {
		Title string `json:"title"`
	} `json:"categories"`
	Location struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
}

type searchResponse struct {
	Businesses []business `json:"businesses"`
}

var _ providers.Fetcher = (*Client)(nil)

// Source reports the search source this client serves.
func (c *Client) Source() enums.SearchSource { return enums.SearchSourceYelp }

// FetchListings searches businesses matching the query around location. Zoom is ignored.
func (c *Client) FetchListings(ctx context.Context, req providers.Request) ([]providers.RawListing, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, providers.Failure(err, "yelp rate limiter")
	}

	params := url.Values{}
	params.Set("term", strings.TrimSpace(req.Query))
	params.Set("location", strings.TrimSpace(req.Location))
	params.Set("limit", strconv.Itoa(searchLimit))
	reqURL := fmt.Sprintf("%s/businesses/search?%s", strings.TrimRight(c.baseURL, "/"), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, providers.Failure(err, "build yelp search request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.Failure(err, "execute yelp search request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return nil, providers.Failure(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "yelp search request failed")
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providers.Failure(err, "decode yelp search response")
	}

	listings := make([]providers.RawListing, 0, len(out.Businesses))
	for _, b := range out.Businesses {
		tags := make([]string, 0, len(b.Categories))
		for _, cat := range b.Categories {
			tags = append(tags, cat.Title)
		}
		listings = append(listings, providers.RawListing{
			Title:       strings.TrimSpace(b.Name),
			Address:     strings.Join(b.Location.DisplayAddress, ", "),
			PhoneNumber: b.DisplayPhone,
			Tags:        strings.Join(tags, ", "),
			SourceURL:   stripTracking(b.URL),
		})
	}
	return listings, nil
}

// stripTracking drops the query string Yelp appends to business page links.
func stripTracking(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
