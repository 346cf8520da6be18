package preview

import (
	"context"
)

// ContentProvider serves cached preview content for preview URIs.
// It never creates entries.
type ContentProvider struct {
	cache *Cache
}

// NewContentProvider creates a provider reading from cache
func NewContentProvider(cache *Cache) *ContentProvider {
	return &ContentProvider{cache: cache}
}

// Scheme returns the URI scheme this provider serves
func (p *ContentProvider) Scheme() string {
	return Scheme
}

// ProvideContent returns the preview content for uri, or "" when there is none.
// TODO: honor ctx once previews can be produced lazily on first read.
func (p *ContentProvider) ProvideContent(ctx context.Context, uri URI) string {
	return p.cache.Read(uri.Path)
}
