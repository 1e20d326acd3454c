package api

import (
	"context"
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingHTTPClient creates an HTTP client with disk-based caching, used
// for the backend's public read-only endpoints which serve Cache-Control
// headers. An empty cacheDir falls back to an in-memory cache.
func NewCachingHTTPClient(cacheDir string) *http.Client {
	if cacheDir == "" {
		return &http.Client{
			Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
		}
	}

	cache := diskcache.New(cacheDir)

	return &http.Client{
		Transport: httpcache.NewTransport(cache),
	}
}

// PublicClient reads the backend's unauthenticated endpoints through a
// caching transport. It shares the Client's base URL but never attaches
// credentials.
type PublicClient struct {
	client *Client
}

// NewPublicClient creates a read-only client for public endpoints.
func NewPublicClient(cfg Config, cacheDir string) (*PublicClient, error) {
	baseClient, err := NewClient(cfg, &Transport{Base: NewCachingHTTPClient(cacheDir).Transport})
	if err != nil {
		return nil, err
	}
	return &PublicClient{client: baseClient}, nil
}

// List fetches a public collection such as /posts or /partners.
func (p *PublicClient) List(ctx context.Context, resource string) ([]map[string]any, error) {
	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := p.client.get(ctx, "/"+resource, nil, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}
