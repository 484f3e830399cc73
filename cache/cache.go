package cache

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// NormalizeKey lowercases and trims a lookup key so that cache addressing
// is insensitive to the casing and whitespace of the original query.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// schemaVersion is bumped only for additive changes; existing collections
// are never rewritten on upgrade.
const schemaVersion = 1

// DB is a shared handle to the durable lookup cache. All stores created
// from one DB share a single SQLite file.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the cache database at path and applies schema
// migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER NOT NULL,
			applied_at INTEGER NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := conn.Exec(m); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate cache db: %w", err)
		}
	}

	var current sql.NullInt64
	_ = conn.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&current)
	if !current.Valid || current.Int64 < schemaVersion {
		if _, err := conn.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
			schemaVersion, time.Now().UnixMilli()); err != nil {
			conn.Close()
			return nil, fmt.Errorf("record schema version: %w", err)
		}
	}

	return &DB{conn: conn}, nil
}

// Ping reports whether the underlying database is reachable.
func (d *DB) Ping() error {
	return d.conn.Ping()
}

// Close releases the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Stats describes the contents of one store.
type Stats struct {
	Total           int64     `json:"total"`
	Valid           int64     `json:"valid"`
	Expired         int64     `json:"expired"`
	Oldest          time.Time `json:"oldest,omitempty"`
	Newest          time.Time `json:"newest,omitempty"`
	ApproxSizeBytes int64     `json:"approx_size_bytes"`
}

// Store is a key→value collection with a fixed TTL. Keys are normalized
// before every read and write. All storage errors fail open: Get degrades
// to a miss and Set to a no-op, since every entry is re-derivable from
// the vendor APIs.
type Store[V any] struct {
	db    *DB
	table string
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates a Store over its own collection (table). The table is
// created on first use; adding stores is the additive schema path.
func NewStore[V any](db *DB, table string, ttl time.Duration) (*Store[V], error) {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`, table)
	if _, err := db.conn.Exec(stmt); err != nil {
		return nil, fmt.Errorf("create store %s: %w", table, err)
	}
	return &Store[V]{db: db, table: table, ttl: ttl, now: time.Now}, nil
}

// Get returns the value for key if present and unexpired. An expired
// entry is deleted on read and reported as a miss.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	key = NormalizeKey(key)

	var raw string
	var createdAt int64
	err := s.db.conn.QueryRow(
		fmt.Sprintf(`SELECT value, created_at FROM %s WHERE key = ?`, s.table), key,
	).Scan(&raw, &createdAt)
	if err != nil {
		return zero, false
	}

	if s.now().Sub(time.UnixMilli(createdAt)) >= s.ttl {
		_, _ = s.db.conn.Exec(fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.table), key)
		return zero, false
	}

	var v V
	if err := unmarshalValue(raw, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Set stores value under key, replacing any existing entry. Errors are
// logged and swallowed; a failed write only costs a future vendor call.
func (s *Store[V]) Set(key string, value V) {
	key = NormalizeKey(key)
	raw, err := marshalValue(value)
	if err != nil {
		log.Printf("⚠️  cache %s: encode %q failed: %v", s.table, key, err)
		return
	}
	_, err = s.db.conn.Exec(
		fmt.Sprintf(`INSERT OR REPLACE INTO %s (key, value, created_at) VALUES (?, ?, ?)`, s.table),
		key, raw, s.now().UnixMilli(),
	)
	if err != nil {
		log.Printf("⚠️  cache %s: write %q failed: %v", s.table, key, err)
	}
}

// Cleanup deletes every expired entry and returns the number removed.
func (s *Store[V]) Cleanup() int64 {
	cutoff := s.now().Add(-s.ttl).UnixMilli()
	res, err := s.db.conn.Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE created_at <= ?`, s.table), cutoff)
	if err != nil {
		log.Printf("⚠️  cache %s: cleanup failed: %v", s.table, err)
		return 0
	}
	n, _ := res.RowsAffected()
	return n
}

// Clear removes all entries unconditionally.
func (s *Store[V]) Clear() {
	if _, err := s.db.conn.Exec(fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		log.Printf("⚠️  cache %s: clear failed: %v", s.table, err)
	}
}

// Stats reports entry counts and age bounds for the store.
func (s *Store[V]) Stats() Stats {
	var st Stats
	cutoff := s.now().Add(-s.ttl).UnixMilli()

	row := s.db.conn.QueryRow(fmt.Sprintf(
		`SELECT COUNT(*),
		        COALESCE(SUM(created_at > ?), 0),
		        COALESCE(MIN(created_at), 0),
		        COALESCE(MAX(created_at), 0),
		        COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0)
		 FROM %s`, s.table), cutoff)

	var oldest, newest int64
	if err := row.Scan(&st.Total, &st.Valid, &oldest, &newest, &st.ApproxSizeBytes); err != nil {
		log.Printf("⚠️  cache %s: stats failed: %v", s.table, err)
		return Stats{}
	}
	st.Expired = st.Total - st.Valid
	if oldest > 0 {
		st.Oldest = time.UnixMilli(oldest)
	}
	if newest > 0 {
		st.Newest = time.UnixMilli(newest)
	}
	return st
}
