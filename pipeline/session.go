package pipeline

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Bundle is everything a completed run produced, kept so a reload within
// the session window does not refetch.
type Bundle struct {
	Request   TripRequest `json:"request"`
	Results   Results     `json:"results"`
	CreatedAt time.Time   `json:"created_at"`
}

// SessionStore holds completed bundles and exported documents for the
// lifetime of a browser session. Purely in-memory; nothing here is
// correctness-critical.
type SessionStore struct {
	bundles *gocache.Cache
	pdfs    *gocache.Cache
}

// NewSessionStore creates a store whose entries expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		bundles: gocache.New(ttl, 10*time.Minute),
		pdfs:    gocache.New(ttl, 10*time.Minute),
	}
}

func (s *SessionStore) SaveBundle(id string, b *Bundle) {
	s.bundles.Set(id, b, gocache.DefaultExpiration)
}

func (s *SessionStore) Bundle(id string) (*Bundle, bool) {
	v, ok := s.bundles.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Bundle), true
}

func (s *SessionStore) SavePDF(id string, data []byte) {
	s.pdfs.Set(id, data, gocache.DefaultExpiration)
}

func (s *SessionStore) PDF(id string) ([]byte, bool) {
	v, ok := s.pdfs.Get(id)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}
