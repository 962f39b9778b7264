package geocoding

import (
	"context"
	"strings"
	"sync"

	"github.com/UnknownOlympus/shadeway/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and an address string as input,
// and returns the corresponding coordinates and an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// CachingProvider remembers successful lookups of the wrapped provider.
// Route endpoints repeat a lot, and public geocoders are rate limited.
type CachingProvider struct {
	next Provider

	mu    sync.RWMutex
	cache map[string]models.Coordinates
}

// NewCachingProvider wraps next with an in-memory cache keyed by the normalised address.
func NewCachingProvider(next Provider) *CachingProvider {
	return &CachingProvider{next: next, cache: make(map[string]models.Coordinates)}
}

func (cp *CachingProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))

	cp.mu.RLock()
	coords, ok := cp.cache[key]
	cp.mu.RUnlock()
	if ok {
		return &coords, nil
	}

	found, err := cp.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	cp.mu.Lock()
	cp.cache[key] = *found
	cp.mu.Unlock()

	return found, nil
}

// Unwrap returns the provider doing the actual lookups.
func (cp *CachingProvider) Unwrap() Provider {
	return cp.next
}

// Len returns the number of cached addresses.
func (cp *CachingProvider) Len() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return len(cp.cache)
}
