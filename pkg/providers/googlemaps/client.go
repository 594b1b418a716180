// Package googlemaps fetches leads from the Google Places Text Search API.
package googlemaps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ideasdevops/lead-ia/pkg/enums"
	"github.com/ideasdevops/lead-ia/pkg/providers"
)

const (
	defaultBaseURL  = "https://places.googleapis.com/v1"
	centerFieldMask = "places.location"
	searchFieldMask = "places.displayName,places.formattedAddress,places.nationalPhoneNumber," +
		"places.websiteUri,places.types,places.googleMapsUri"
)

const (
	maxResultCount        = 20
	maxBiasRadiusMeters   = 50000.0
	viewportHalfWidthPx   = 320.0
	metersPerPixelAtZoom0 = 156543.03392
)

const responseReadLimit int64 = 1024

var errAPIKeyRequired = errors.New("google maps api key is required")

// Client calls places:searchText.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
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

// WithBaseURL overrides the Places base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Places client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	c := &Client{
		apiKey:     key,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type searchTextRequest struct {
	TextQuery      string        `json:"textQuery"`
	MaxResultCount int           `json:"maxResultCount,omitempty"`
	LocationBias   *locationBias `json:"locationBias,omitempty"`
}

type place struct {
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress    string   `json:"formattedAddress"`
	NationalPhoneNumber string   `json:"nationalPhoneNumber"`
	WebsiteURI          string   `json:"websiteUri"`
	Types               []string `json:"types"`
	GoogleMapsURI       string   `json:"googleMapsUri"`
	Location            *latLng  `json:"location"`
}

type searchTextResponse struct {
	Places []place `json:"places"`
}

var _ providers.Fetcher = (*Client)(nil)

// Source reports the search source this client serves.
func (c *Client) Source() enums.SearchSource { return enums.SearchSourceGoogleMaps }

// FetchListings runs "<query> in <location>". With a zoom the location is resolved first and
// results are biased to a circle matching the visible map area at that zoom.
func (c *Client) FetchListings(ctx context.Context, req providers.Request) ([]providers.RawListing, error) {
	body := searchTextRequest{
		TextQuery:      textQuery(req.Query, req.Location),
		MaxResultCount: maxResultCount,
	}
	if req.Zoom != nil && strings.TrimSpace(req.Location) != "" {
		center, err := c.resolveCenter(ctx, req.Location)
		if err != nil {
			return nil, err
		}
		if center != nil {
			body.LocationBias = &locationBias{Circle: circle{
				Center: *center,
				Radius: RadiusForZoom(*req.Zoom, center.Latitude),
			}}
		}
	}

	var resp searchTextResponse
	if err := c.searchText(ctx, body, searchFieldMask, &resp); err != nil {
		return nil, err
	}

	listings := make([]providers.RawListing, 0, len(resp.Places))
	for _, p := range resp.Places {
		listings = append(listings, providers.RawListing{
			Title:       strings.TrimSpace(p.DisplayName.Text),
			Address:     strings.TrimSpace(p.FormattedAddress),
			PhoneNumber: p.NationalPhoneNumber,
			WebsiteURL:  p.WebsiteURI,
			Tags:        strings.Join(p.Types, ", "),
			SourceURL:   p.GoogleMapsURI,
		})
	}
	return listings, nil
}

func (c *Client) resolveCenter(ctx context.Context, location string) (*latLng, error) {
	var resp searchTextResponse
	if err := c.searchText(ctx, searchTextRequest{TextQuery: location, MaxResultCount: 1}, centerFieldMask, &resp); err != nil {
		return nil, err
	}
	if len(resp.Places) == 0 || resp.Places[0].Location == nil {
		return nil, nil
	}
	return resp.Places[0].Location, nil
}

func (c *Client) searchText(ctx context.Context, body searchTextRequest, fieldMask string, out *searchTextResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return providers.Failure(err, "marshal places search request")
	}
	url := strings.TrimRight(c.baseURL, "/") + "/places:searchText"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return providers.Failure(err, "build places search request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return providers.Failure(err, "execute places search request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return providers.Failure(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "places search request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return providers.Failure(err, "decode places search response")
	}
	return nil
}

func textQuery(query, location string) string {
	query = strings.TrimSpace(query)
	location = strings.TrimSpace(location)
	if location == "" {
		return query
	}
	return fmt.Sprintf("%s in %s", query, location)
}

// RadiusForZoom approximates half the width of a map viewport at zoom over latitude, in meters,
// capped at the Places API maximum.
func RadiusForZoom(zoom, latitude float64) float64 {
	mpp := metersPerPixelAtZoom0 * math.Cos(latitude*math.Pi/180) / math.Pow(2, zoom)
	radius := mpp * viewportHalfWidthPx
	if radius > maxBiasRadiusMeters {
		return maxBiasRadiusMeters
	}
	if radius < 1 {
		return 1
	}
	return radius
}
