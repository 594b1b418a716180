package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/providers"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestFetchListingsMapsPlaces(t *testing.T) {
	respBody := `{"places":[
		{"displayName":{"text":" Pizza Roma "},"formattedAddress":"1 Rue A, Paris","nationalPhoneNumber":"01 23","websiteUri":"https://roma.example","types":["restaurant","food"],"googleMapsUri":"https://maps.google.com/?cid=1"},
		{"displayName":{"text":"Luigi"},"formattedAddress":"2 Rue B, Paris"}
	]}`

	var captured []searchTextRequest
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "http://maps.test/v1/places:searchText" {
			t.Fatalf("unexpected URL %q", req.URL.String())
		}
		if req.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Fatalf("api key header missing")
		}
		if req.Header.Get("X-Goog-FieldMask") != searchFieldMask {
			t.Fatalf("unexpected field mask %q", req.Header.Get("X-Goog-FieldMask"))
		}
		var body searchTextRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		captured = append(captured, body)
		return jsonResponse(http.StatusOK, respBody), nil
	})

	client, err := NewClient("test-key", WithBaseURL("http://maps.test/v1/"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	listings, err := client.FetchListings(context.Background(), providers.Request{Query: "Pizza", Location: "Paris"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(captured) != 1 || captured[0].TextQuery != "Pizza in Paris" || captured[0].LocationBias != nil {
		t.Fatalf("unexpected request %+v", captured)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	first := listings[0]
	if first.Title != "Pizza Roma" || first.Tags != "restaurant, food" || first.SourceURL != "https://maps.google.com/?cid=1" {
		t.Fatalf("unexpected mapping %+v", first)
	}
	if listings[1].PhoneNumber != "" || listings[1].WebsiteURL != "" {
		t.Fatalf("missing fields should stay empty: %+v", listings[1])
	}
}

func TestFetchListingsWithZoomBiasesAroundLocation(t *testing.T) {
	var requests []searchTextRequest
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		var body searchTextRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		requests = append(requests, body)
		if req.Header.Get("X-Goog-FieldMask") == centerFieldMask {
			return jsonResponse(http.StatusOK, `{"places":[{"location":{"latitude":48.85,"longitude":2.35}}]}`), nil
		}
		return jsonResponse(http.StatusOK, `{"places":[]}`), nil
	})
	client, _ := NewClient("k", WithBaseURL("http://maps.test/v1"), WithHTTPClient(&http.Client{Transport: rt}))

	zoom := 12.0
	listings, err := client.FetchListings(context.Background(), providers.Request{Query: "Pizza", Location: "Paris", Zoom: &zoom})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(listings) != 0 {
		t.Fatalf("expected empty result, got %+v", listings)
	}
	if len(requests) != 2 {
		t.Fatalf("expected center lookup plus search, got %d requests", len(requests))
	}
	if requests[0].TextQuery != "Paris" || requests[0].MaxResultCount != 1 {
		t.Fatalf("unexpected center lookup %+v", requests[0])
	}
	bias := requests[1].LocationBias
	if bias == nil || bias.Circle.Center.Latitude != 48.85 {
		t.Fatalf("expected location bias around Paris, got %+v", bias)
	}
	if want := RadiusForZoom(12, 48.85); math.Abs(bias.Circle.Radius-want) > 0.01 {
		t.Fatalf("radius %f want %f", bias.Circle.Radius, want)
	}
}

func TestFetchListingsNonOKIsProviderFailure(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{"error":"denied"}`), nil
	})
	client, _ := NewClient("k", WithHTTPClient(&http.Client{Transport: rt}))

	_, err := client.FetchListings(context.Background(), providers.Request{Query: "x", Location: "y"})
	if !pkgerrors.Is(err, pkgerrors.CodeProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if !strings.Contains(errors.Unwrap(err).Error(), "403") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err != errAPIKeyRequired {
		t.Fatalf("expected errAPIKeyRequired, got %v", err)
	}
}

func TestRadiusForZoom(t *testing.T) {
	if got := RadiusForZoom(0, 0); got != maxBiasRadiusMeters {
		t.Fatalf("world zoom should cap at %f, got %f", maxBiasRadiusMeters, got)
	}
	closer := RadiusForZoom(15, 40)
	farther := RadiusForZoom(12, 40)
	if !(closer < farther) {
		t.Fatalf("higher zoom should shrink radius: z15=%f z12=%f", closer, farther)
	}
	if got := RadiusForZoom(30, 0); got != 1 {
		t.Fatalf("expected floor of 1m, got %f", got)
	}
}
