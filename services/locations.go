package services

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"tripscout/cache"
)

// ─── Cache value shapes ───────────────────────────────────────────────────────

// CodeEntry is the cached resolution of a free-text query to an IATA code.
type CodeEntry struct {
	Code          string `json:"code"`
	OriginalQuery string `json:"originalQuery"`
}

// CoordEntry is the cached geocoding of a free-text query.
type CoordEntry struct {
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	OriginalQuery string  `json:"originalQuery"`
}

const (
	// Codes for a named city essentially never change; a month keeps the
	// vendor call rate negligible without risking anything.
	codeTTL = 30 * 24 * time.Hour
	// Coordinates are effectively immutable.
	coordTTL = 365 * 24 * time.Hour
)

// LocationKind selects what a query should resolve to.
type LocationKind string

const (
	KindAirport LocationKind = "AIRPORT"
	KindCity    LocationKind = "CITY"
)

// DefaultHub is returned when a query cannot be resolved at all.
const DefaultHub = "LHR"

var airportCodeRe = regexp.MustCompile(`^[A-Za-z]{3}$`)

// CodeSearcher looks up locations by keyword against a vendor directory.
type CodeSearcher interface {
	SearchLocations(ctx context.Context, keyword, subTypes string) ([]Location, error)
}

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (lat, lon float64, err error)
}

// LocationResolver resolves free-text city/airport names to IATA codes and
// geocoordinates, backed by two durable TTL caches. Resolution never
// fails: vendor errors degrade to a static table, then to DefaultHub.
type LocationResolver struct {
	search CodeSearcher // nil when the vendor is unconfigured
	geo    Geocoder     // nil when the vendor is unconfigured
	codes  *cache.Store[CodeEntry]
	coords *cache.Store[CoordEntry]
}

// NewLocationResolver creates a resolver with its code and coordinate
// caches on db. search and geo may be nil; the resolver then serves purely
// from cache and the static tables.
func NewLocationResolver(db *cache.DB, search CodeSearcher, geo Geocoder) (*LocationResolver, error) {
	codes, err := cache.NewStore[CodeEntry](db, "airport_codes", codeTTL)
	if err != nil {
		return nil, err
	}
	coords, err := cache.NewStore[CoordEntry](db, "city_coords", coordTTL)
	if err != nil {
		return nil, err
	}
	return &LocationResolver{search: search, geo: geo, codes: codes, coords: coords}, nil
}

// ResolveCode resolves query to an IATA code. A 3-letter literal is
// returned uppercased without touching cache or network.
func (r *LocationResolver) ResolveCode(ctx context.Context, query string, kind LocationKind) string {
	trimmed := strings.TrimSpace(query)
	if airportCodeRe.MatchString(trimmed) {
		return strings.ToUpper(trimmed)
	}
	if len(trimmed) < 2 {
		// Too short to mean anything; never worth a vendor call.
		return fallbackCode(trimmed, kind)
	}

	if entry, ok := r.codes.Get(trimmed); ok {
		return entry.Code
	}

	code := r.lookupCode(ctx, trimmed, kind)
	// Fallback results are cached too, so an unresolvable query does not
	// retry the vendor on every request within the TTL window.
	r.codes.Set(trimmed, CodeEntry{Code: code, OriginalQuery: query})
	return code
}

func (r *LocationResolver) lookupCode(ctx context.Context, query string, kind LocationKind) string {
	if r.search == nil {
		return fallbackCode(query, kind)
	}

	subTypes := "CITY"
	if kind == KindAirport {
		subTypes = "AIRPORT,CITY"
	}
	results, err := r.search.SearchLocations(ctx, query, subTypes)
	if err != nil {
		log.Printf("⚠️  location search for %q failed: %v — using static table", query, err)
		return fallbackCode(query, kind)
	}
	if code := pickCode(results, kind); code != "" {
		return code
	}
	return fallbackCode(query, kind)
}

// pickCode prefers an exact AIRPORT subtype when resolving airports,
// otherwise the first result carrying a code.
func pickCode(results []Location, kind LocationKind) string {
	if kind == KindAirport {
		for _, loc := range results {
			if loc.SubType == "AIRPORT" && loc.IataCode != "" {
				return strings.ToUpper(loc.IataCode)
			}
		}
	}
	for _, loc := range results {
		if loc.IataCode != "" {
			return strings.ToUpper(loc.IataCode)
		}
	}
	return ""
}

// ResolveCoords resolves query to a lat/lon pair, caching for a year.
func (r *LocationResolver) ResolveCoords(ctx context.Context, query string) CoordEntry {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < 2 {
		return fallbackCoords(trimmed, query)
	}

	if entry, ok := r.coords.Get(trimmed); ok {
		return entry
	}

	entry := r.lookupCoords(ctx, trimmed, query)
	r.coords.Set(trimmed, entry)
	return entry
}

func (r *LocationResolver) lookupCoords(ctx context.Context, trimmed, original string) CoordEntry {
	if r.geo == nil {
		return fallbackCoords(trimmed, original)
	}
	lat, lon, err := r.geo.Geocode(ctx, trimmed)
	if err != nil {
		log.Printf("⚠️  geocoding %q failed: %v — using static table", trimmed, err)
		return fallbackCoords(trimmed, original)
	}
	return CoordEntry{Lat: lat, Lon: lon, OriginalQuery: original}
}

// Suggest returns typeahead suggestions for a partial query. Queries
// shorter than two characters return nothing without a network call.
func (r *LocationResolver) Suggest(ctx context.Context, query string) []Location {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < 2 {
		return nil
	}

	if r.search != nil {
		results, err := r.search.SearchLocations(ctx, trimmed, "AIRPORT,CITY")
		if err == nil && len(results) > 0 {
			return results
		}
		if err != nil {
			log.Printf("⚠️  suggestion search for %q failed: %v — using static table", trimmed, err)
		}
	}

	prefix := cache.NormalizeKey(trimmed)
	var out []Location
	for city, code := range cityAirports {
		if strings.HasPrefix(city, prefix) {
			out = append(out, Location{Name: titleCase(city), IataCode: code, SubType: "CITY"})
		}
	}
	return out
}

// CacheStats reports both lookup collections, code cache first.
func (r *LocationResolver) CacheStats() (codes, coords cache.Stats) {
	return r.codes.Stats(), r.coords.Stats()
}

// CacheCleanup sweeps expired entries from both collections and returns
// the total removed.
func (r *LocationResolver) CacheCleanup() int64 {
	return r.codes.Cleanup() + r.coords.Cleanup()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
