// Package providers defines the contract between search execution and the
// external directories leads are collected from.
package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
)

// Request is the provider-neutral search input. Zoom is only set for sources that support it.
type Request struct {
	Query    string
	Location string
	Zoom     *float64
}

// RawListing is one record as returned by a provider; fields map onto a Lead.
type RawListing struct {
	Title       string
	Address     string
	PhoneNumber string
	WebsiteURL  string
	Tags        string
	SourceURL   string
}

// Fetcher queries one external directory. Implementations are called at most once per execution.
type Fetcher interface {
	FetchListings(ctx context.Context, req Request) ([]RawListing, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) ([]RawListing, error)

func (f FetcherFunc) FetchListings(ctx context.Context, req Request) ([]RawListing, error) {
	return f(ctx, req)
}

// Registry maps a search source to the fetcher serving it.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[enums.SearchSource]Fetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[enums.SearchSource]Fetcher)}
}

// Register binds source to f, replacing any previous binding.
func (r *Registry) Register(source enums.SearchSource, f Fetcher) {
	if f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[source] = f
}

// Fetcher returns the fetcher for source or a ProviderFailure when none is configured.
func (r *Registry) Fetcher(source enums.SearchSource) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[source]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeProviderFailure, fmt.Sprintf("no provider configured for source %s", source))
	}
	return f, nil
}

// Sources lists the configured sources in stable order.
func (r *Registry) Sources() []enums.SearchSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]enums.SearchSource, 0, len(r.fetchers))
	for source := range r.fetchers {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Failure wraps a transport or decoding error as a ProviderFailure.
func Failure(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeProviderFailure, err, msg)
}
