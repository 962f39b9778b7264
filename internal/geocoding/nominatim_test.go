package geocoding_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/shadeway/internal/geocoding"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func respond(status int, body string) (*http.Response, error) {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(body))}, nil
}

func newTestNominatim(client geocoding.HTTPClient) *geocoding.NominatimProvider {
	provider := geocoding.NewNominatimProviderWithClient(client, slog.Default())
	provider.SetRateLimit(1000)
	return provider
}

func TestNominatimProvider_Geocode(t *testing.T) {
	ctx := context.Background()

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Contains(t, req.URL.String(), "nominatim.openstreetmap.org")
				assert.Equal(t, "Nørrebrogade 20, København", req.URL.Query().Get("q"))
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				assert.Empty(t, req.URL.Query().Get("viewbox"))
				assert.Contains(t, req.Header.Get("User-Agent"), "Shadeway")

				return respond(http.StatusOK, `[{"lat":"55.6889","lon":"12.5569"}]`)
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "Nørrebrogade 20, København")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 55.6889, coords.Latitude, 0.0001)
		assert.InEpsilon(t, 12.5569, coords.Longitude, 0.0001)
	})

	t.Run("custom base url", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "geo.internal", req.URL.Host)
				return respond(http.StatusOK, `[{"lat":"1","lon":"2"}]`)
			},
		}

		provider := newTestNominatim(mockClient)
		provider.SetBaseURL("http://geo.internal/search")
		_, err := provider.Geocode(ctx, "somewhere")

		require.NoError(t, err)
	})

	t.Run("empty response from API", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `[]`)
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "invalid address")

		require.Nil(t, coords)
		assert.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`)
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "some address")

		require.Nil(t, coords)
		assert.ErrorContains(t, err, "nominatim API returned status 429")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `invalid json`)
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "some address")

		require.Nil(t, coords)
		assert.ErrorContains(t, err, "failed to decode nominatim response")
	})

	t.Run("invalid latitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `[{"lat":"invalid","lon":"12.5"}]`)
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.ErrorContains(t, err, "invalid latitude")
	})

	t.Run("invalid longitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `[{"lat":"55.6","lon":"invalid"}]`)
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.ErrorContains(t, err, "invalid longitude")
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "some address")

		require.Nil(t, coords)
		require.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, "failed to execute geocoding request")
	})

	t.Run("context cancellation", func(t *testing.T) {
		newCtx, cancel := context.WithCancel(context.Background())
		cancel()

		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, req.Context().Err()
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(newCtx, "some address")

		require.Error(t, err)
		require.Nil(t, coords)
	})
}

func TestNominatimProvider_AddressFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback to district when full address fails", func(t *testing.T) {
		var queries []string
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				query := req.URL.Query().Get("q")
				queries = append(queries, query)
				if query == "Vesterbro" {
					return respond(http.StatusOK, `[{"lat":"55.6667","lon":"12.5500"}]`)
				}
				return respond(http.StatusOK, `[]`)
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "Vesterbro, Istedgade, 999")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 55.6667, coords.Latitude, 0.0001)
		assert.Equal(t, []string{"Vesterbro, Istedgade, 999", "Vesterbro, Istedgade", "Vesterbro"}, queries)
	})

	t.Run("all fallbacks fail", func(t *testing.T) {
		requestCount := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				requestCount++
				return respond(http.StatusOK, `[]`)
			},
		}

		coords, err := newTestNominatim(mockClient).Geocode(ctx, "Nowhere, Unknown street, 1")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
		assert.Equal(t, 3, requestCount)
	})

	t.Run("single-part address no fallback", func(t *testing.T) {
		requestCount := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				requestCount++
				return respond(http.StatusOK, `[]`)
			},
		}

		_, err := newTestNominatim(mockClient).Geocode(ctx, "Frederiksberg")

		require.Error(t, err)
		assert.Equal(t, 1, requestCount, "single-part address should only try once")
	})

	t.Run("api error stops fallback", func(t *testing.T) {
		requestCount := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				requestCount++
				return respond(http.StatusInternalServerError, `boom`)
			},
		}

		_, err := newTestNominatim(mockClient).Geocode(ctx, "A, B, C")

		require.Error(t, err)
		assert.Equal(t, 1, requestCount)
	})
}

func TestNewNominatimProvider(t *testing.T) {
	provider := geocoding.NewNominatimProvider(slog.Default())

	require.NotNil(t, provider)
}

func TestNominatimProvider_Viewbox(t *testing.T) {
	mockClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "12.500000,55.700000,12.600000,55.600000", req.URL.Query().Get("viewbox"))
			return respond(http.StatusOK, `[{"lat":"55.65","lon":"12.55"}]`)
		},
	}

	provider := newTestNominatim(mockClient)
	provider.SetArea(orb.Bound{Min: orb.Point{12.5, 55.6}, Max: orb.Point{12.6, 55.7}})
	_, err := provider.Geocode(t.Context(), "Halmtorvet")

	require.NoError(t, err)
}
