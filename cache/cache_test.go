package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codeValue struct {
	Code          string `json:"code"`
	OriginalQuery string `json:"originalQuery"`
}

func newTestStore(t *testing.T, ttl time.Duration) *Store[codeValue] {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewStore[codeValue](db, "airport_codes", ttl)
	require.NoError(t, err)
	return s
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "paris", NormalizeKey("  Paris "))
	assert.Equal(t, "new york", NormalizeKey("New York"))
	assert.Equal(t, NormalizeKey("LONDON"), NormalizeKey("london"))
}

func TestStoreReadAfterWrite(t *testing.T) {
	s := newTestStore(t, 30*24*time.Hour)

	s.Set("Paris", codeValue{Code: "CDG", OriginalQuery: "Paris"})

	v, ok := s.Get("paris")
	require.True(t, ok)
	assert.Equal(t, "CDG", v.Code)

	// Keys that normalize to the same string address the same entry.
	v, ok = s.Get("  PARIS ")
	require.True(t, ok)
	assert.Equal(t, "CDG", v.Code)
}

func TestStoreOverwrite(t *testing.T) {
	s := newTestStore(t, time.Hour)

	s.Set("rome", codeValue{Code: "XXX"})
	s.Set("Rome", codeValue{Code: "FCO"})

	v, ok := s.Get("rome")
	require.True(t, ok)
	assert.Equal(t, "FCO", v.Code)

	st := s.Stats()
	assert.Equal(t, int64(1), st.Total)
}

func TestStoreExpiry(t *testing.T) {
	s := newTestStore(t, 30*24*time.Hour)

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Set("tokyo", codeValue{Code: "NRT"})

	_, ok := s.Get("tokyo")
	assert.True(t, ok, "fresh entry should hit")

	// Advance past the TTL: the entry reads as a miss and is removed.
	clock = clock.Add(31 * 24 * time.Hour)
	_, ok = s.Get("tokyo")
	assert.False(t, ok)

	st := s.Stats()
	assert.Equal(t, int64(0), st.Total, "expired entry should be deleted on read")
}

func TestStoreCleanup(t *testing.T) {
	s := newTestStore(t, 30*24*time.Hour)

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Set("old-a", codeValue{Code: "AAA"})
	s.Set("old-b", codeValue{Code: "BBB"})

	clock = clock.Add(31 * 24 * time.Hour)
	s.Set("fresh", codeValue{Code: "CCC"})

	removed := s.Cleanup()
	assert.Equal(t, int64(2), removed)

	// Idempotent: a second sweep has nothing left to remove.
	assert.Equal(t, int64(0), s.Cleanup())

	_, ok := s.Get("fresh")
	assert.True(t, ok, "unexpired entry must survive cleanup")
}

func TestStoreClearAndStats(t *testing.T) {
	s := newTestStore(t, time.Hour)

	s.Set("a", codeValue{Code: "AAA"})
	s.Set("b", codeValue{Code: "BBB"})

	st := s.Stats()
	assert.Equal(t, int64(2), st.Total)
	assert.Equal(t, int64(2), st.Valid)
	assert.Equal(t, int64(0), st.Expired)
	assert.False(t, st.Oldest.IsZero())
	assert.Greater(t, st.ApproxSizeBytes, int64(0))

	s.Clear()
	st = s.Stats()
	assert.Equal(t, int64(0), st.Total)
}

func TestStoreGetMissingKey(t *testing.T) {
	s := newTestStore(t, time.Hour)
	_, ok := s.Get("never written")
	assert.False(t, ok)
}

func TestTwoStoresShareOneDB(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "cache_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	codes, err := NewStore[codeValue](db, "airport_codes", time.Hour)
	require.NoError(t, err)
	coords, err := NewStore[map[string]float64](db, "city_coords", time.Hour)
	require.NoError(t, err)

	codes.Set("paris", codeValue{Code: "CDG"})
	coords.Set("paris", map[string]float64{"lat": 48.8566, "lon": 2.3522})

	v, ok := codes.Get("paris")
	require.True(t, ok)
	assert.Equal(t, "CDG", v.Code)

	c, ok := coords.Get("paris")
	require.True(t, ok)
	assert.InDelta(t, 48.8566, c["lat"], 0.001)
}
