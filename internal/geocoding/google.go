package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/shadeway/internal/models"
	"github.com/paulmach/orb"
	"googlemaps.github.io/maps"
)

// GoogleProvider geocodes addresses with the Google Maps Geocoding API.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
	region string          // region biases results towards a country
	area   orb.Bound       // area biases results towards the routed network
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleProvider initializes a new GoogleProvider around an API client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// SetBias biases results towards a region code and a geographic bound.
func (gp *GoogleProvider) SetBias(region string, area orb.Bound) {
	gp.region = region
	gp.area = area
}

// Geocode returns the coordinates of the best match for address.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := gp.request(address)
	geocodeResponse, err := gp.client.Geocode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}
	coords := geocodeResponse[0].Geometry.Location

	return &models.Coordinates{Longitude: coords.Lng, Latitude: coords.Lat}, nil
}

func (gp *GoogleProvider) request(address string) *maps.GeocodingRequest {
	req := &maps.GeocodingRequest{Address: address, Region: gp.region}
	if gp.area != (orb.Bound{}) && !gp.area.IsEmpty() {
		req.Bounds = &maps.LatLngBounds{
			NorthEast: maps.LatLng{Lat: gp.area.Max.Lat(), Lng: gp.area.Max.Lon()},
			SouthWest: maps.LatLng{Lat: gp.area.Min.Lat(), Lng: gp.area.Min.Lon()},
		}
	}
	return req
}
