package geocoding

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
)

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // Type of provider to create
	APIKey    string       // API key (used by Google provider)
	RateLimit int          // Requests per second; zero keeps the provider default
	Region    string       // Region bias as a ccTLD code, e.g. "dk"
	Area      orb.Bound    // Geographic bound of the network used as a search bias; may be empty
	Logger    *slog.Logger // Logger for the provider
}

// NewProvider creates a geocoding provider based on the provided configuration.
//
// Supported provider types:
// - "google": Google Maps Geocoding API (requires API key)
// - "nominatim": OpenStreetMap Nominatim API (free, no API key required)
//
// The returned provider caches successful lookups.
func NewProvider(config ProviderConfig) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch config.Type {
	case ProviderTypeGoogle:
		provider, err = newGoogleProvider(config)
	case ProviderTypeNominatim:
		provider, err = newNominatimProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	return NewCachingProvider(provider), nil
}

// newGoogleProvider creates a Google Maps geocoding provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	provider := NewGoogleProvider(client, config.Logger)
	provider.SetBias(config.Region, config.Area)

	return provider, nil
}

// newNominatimProvider creates a Nominatim geocoding provider.
func newNominatimProvider(config ProviderConfig) (Provider, error) {
	provider := NewNominatimProvider(config.Logger)
	if config.RateLimit > 0 {
		provider.SetRateLimit(config.RateLimit)
	}
	provider.SetArea(config.Area)

	return provider, nil
}
