package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripscout/cache"
)

type stubSearcher struct {
	results []Location
	err     error
	calls   int
}

func (s *stubSearcher) SearchLocations(ctx context.Context, keyword, subTypes string) ([]Location, error) {
	s.calls++
	return s.results, s.err
}

type stubGeocoder struct {
	lat, lon float64
	err      error
	calls    int
}

func (s *stubGeocoder) Geocode(ctx context.Context, city string) (float64, float64, error) {
	s.calls++
	return s.lat, s.lon, s.err
}

func newTestResolver(t *testing.T, search CodeSearcher, geo Geocoder) *LocationResolver {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r, err := NewLocationResolver(db, search, geo)
	require.NoError(t, err)
	return r
}

func TestResolveCodeLiteralSkipsEverything(t *testing.T) {
	search := &stubSearcher{err: errors.New("vendor down")}
	r := newTestResolver(t, search, nil)

	assert.Equal(t, "LAX", r.ResolveCode(context.Background(), "lax", KindAirport))
	assert.Equal(t, "JFK", r.ResolveCode(context.Background(), " JFK ", KindAirport))
	assert.Zero(t, search.calls, "a 3-letter literal must not reach the vendor")
}

func TestResolveCodeShortQuerySkipsNetwork(t *testing.T) {
	search := &stubSearcher{results: []Location{{IataCode: "XXX", SubType: "AIRPORT"}}}
	r := newTestResolver(t, search, nil)

	assert.Equal(t, DefaultHub, r.ResolveCode(context.Background(), "p", KindAirport))
	assert.Equal(t, DefaultHub, r.ResolveCode(context.Background(), "  ", KindAirport))
	assert.Zero(t, search.calls)
}

func TestResolveCodePrefersAirportSubType(t *testing.T) {
	search := &stubSearcher{results: []Location{
		{Name: "Paris", IataCode: "PAR", SubType: "CITY"},
		{Name: "Charles de Gaulle", IataCode: "cdg", SubType: "AIRPORT"},
	}}
	r := newTestResolver(t, search, nil)

	assert.Equal(t, "CDG", r.ResolveCode(context.Background(), "Paris", KindAirport))
}

func TestResolveCodeCachesVendorHit(t *testing.T) {
	search := &stubSearcher{results: []Location{{IataCode: "NRT", SubType: "AIRPORT"}}}
	r := newTestResolver(t, search, nil)

	assert.Equal(t, "NRT", r.ResolveCode(context.Background(), "Tokyo", KindAirport))
	assert.Equal(t, "NRT", r.ResolveCode(context.Background(), "  TOKYO ", KindAirport))
	assert.Equal(t, 1, search.calls, "second lookup must come from cache")
}

func TestResolveCodeVendorFailureFallsBackAndCaches(t *testing.T) {
	search := &stubSearcher{err: errors.New("503")}
	r := newTestResolver(t, search, nil)

	assert.Equal(t, "CDG", r.ResolveCode(context.Background(), "Paris", KindAirport))
	assert.Equal(t, "CDG", r.ResolveCode(context.Background(), "paris", KindAirport))
	assert.Equal(t, 1, search.calls, "fallback result must be cached too")
}

func TestResolveCodeUnknownCityDefaultHub(t *testing.T) {
	r := newTestResolver(t, nil, nil)
	assert.Equal(t, DefaultHub, r.ResolveCode(context.Background(), "Atlantis", KindAirport))
}

func TestResolveCoordsCachesVendorHit(t *testing.T) {
	geo := &stubGeocoder{lat: 48.8566, lon: 2.3522}
	r := newTestResolver(t, nil, geo)

	first := r.ResolveCoords(context.Background(), "Paris")
	assert.Equal(t, 48.8566, first.Lat)

	second := r.ResolveCoords(context.Background(), "PARIS")
	assert.Equal(t, first.Lat, second.Lat)
	assert.Equal(t, 1, geo.calls)
}

func TestResolveCoordsStaticFallback(t *testing.T) {
	geo := &stubGeocoder{err: errors.New("timeout")}
	r := newTestResolver(t, nil, geo)

	entry := r.ResolveCoords(context.Background(), "Tokyo")
	assert.Equal(t, 35.6762, entry.Lat)
	assert.Equal(t, 139.6503, entry.Lon)
}

func TestSuggestShortQueryReturnsNothing(t *testing.T) {
	search := &stubSearcher{results: []Location{{Name: "Paris", IataCode: "PAR"}}}
	r := newTestResolver(t, search, nil)

	assert.Nil(t, r.Suggest(context.Background(), "p"))
	assert.Zero(t, search.calls)
}

func TestSuggestStaticFallback(t *testing.T) {
	search := &stubSearcher{err: errors.New("down")}
	r := newTestResolver(t, search, nil)

	got := r.Suggest(context.Background(), "lon")
	require.Len(t, got, 1)
	assert.Equal(t, "London", got[0].Name)
	assert.Equal(t, "LHR", got[0].IataCode)
}

func TestSuggestVendorResults(t *testing.T) {
	search := &stubSearcher{results: []Location{{Name: "London Heathrow", IataCode: "LHR", SubType: "AIRPORT"}}}
	r := newTestResolver(t, search, nil)

	got := r.Suggest(context.Background(), "london")
	require.Len(t, got, 1)
	assert.Equal(t, "London Heathrow", got[0].Name)
}
