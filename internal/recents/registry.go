package recents

import (
	"sync"
	"time"
)

// DefaultTTL is how long a tracked URI stays in the registry. It covers
// the gap between staging a local file and the matching database row
// becoming visible to readers.
const DefaultTTL = 60 * time.Second

type RegistryOpts func(r *Registry)

func WithTTL(ttl time.Duration) RegistryOpts {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

func WithClock(now func() time.Time) RegistryOpts {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry remembers image URIs created in the recent past. The orphan
// sweep treats tracked URIs as referenced even before their database
// rows land, so a freshly staged file is never deleted out from under an
// in-flight save.
type Registry struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewRegistry(opts ...RegistryOpts) *Registry {
	r := &Registry{
		entries: make(map[string]time.Time),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Track records uri as recently created, refreshing its expiry when
// already present. Empty URIs are ignored.
func (r *Registry) Track(uri string) {
	if uri == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[uri] = r.now()
}

// Snapshot drops expired entries and returns the URIs still inside the
// TTL window.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	uris := make([]string, 0, len(r.entries))
	for uri, created := range r.entries {
		if now.Sub(created) > r.ttl {
			delete(r.entries, uri)
			continue
		}
		uris = append(uris, uri)
	}
	return uris
}
