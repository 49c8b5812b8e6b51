// Package sqlite implements the persistent result store backing the
// dispatcher's generation cache.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/llamagate-ai/llamagate/pkg/models"
)

// Store is a fingerprint-keyed result cache backed by SQLite. Entries carry
// an absolute expiry; expired rows are treated as absent and purged lazily
// on read or eagerly via EvictExpired.
type Store struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

const createTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint TEXT PRIMARY KEY,
	result BLOB NOT NULL,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	hit_count INTEGER NOT NULL DEFAULT 0,
	size_bytes INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache_entries(expires_at);
`

// New creates a Store at the given database path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Get retrieves a cached result by fingerprint. An expired entry is treated
// identically to a missing one and is removed. The hit counter on the entry
// is incremented on every hit.
func (s *Store) Get(key string) (*models.GenerationResult, bool, error) {
	var blob []byte
	var expiresAt time.Time

	err := s.db.QueryRow(
		`SELECT result, expires_at FROM cache_entries WHERE fingerprint = ?`,
		key,
	).Scan(&blob, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		s.misses.Add(1)
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	if !time.Now().UTC().Before(expiresAt) {
		_, _ = s.db.Exec(`DELETE FROM cache_entries WHERE fingerprint = ?`, key)
		s.misses.Add(1)
		return nil, false, nil
	}

	var result models.GenerationResult
	if err := json.Unmarshal(blob, &result); err != nil {
		// Corrupted payloads are purged rather than returned.
		_, _ = s.db.Exec(`DELETE FROM cache_entries WHERE fingerprint = ?`, key)
		s.misses.Add(1)
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}

	_, _ = s.db.Exec(
		`UPDATE cache_entries SET hit_count = hit_count + 1 WHERE fingerprint = ?`,
		key,
	)

	s.hits.Add(1)
	return &result, true, nil
}

// Put stores a result under the given fingerprint with expiry now+ttl.
// An existing entry with the same fingerprint is overwritten and its hit
// count reset. The write is a single statement; on failure no partial state
// is visible to readers.
func (s *Store) Put(key string, result *models.GenerationResult, ttl time.Duration) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO cache_entries (fingerprint, result, created_at, expires_at, hit_count, size_bytes)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		key, blob, now, now.Add(ttl), int64(len(blob)),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Delete removes an entry. Reports whether a row was deleted.
func (s *Store) Delete(key string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM cache_entries WHERE fingerprint = ?`, key)
	if err != nil {
		return false, fmt.Errorf("cache delete: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// EvictExpired removes all entries whose expiry has passed and returns the
// number removed. Safe to call concurrently with Get and Put.
func (s *Store) EvictExpired() (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM cache_entries WHERE expires_at <= ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("cache evict: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Clear removes all entries and returns the number removed.
func (s *Store) Clear() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Stats returns store metrics. Hit and miss counters are per-process.
func (s *Store) Stats() (models.CacheStats, error) {
	var entries, totalBytes, expired int64

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM cache_entries`,
	).Scan(&entries, &totalBytes)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM cache_entries WHERE expires_at <= ?`,
		time.Now().UTC(),
	).Scan(&expired)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}

	return models.CacheStats{
		Entries:    entries,
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Expired:    expired,
		TotalBytes: totalBytes,
	}, nil
}

// Export returns a metadata snapshot of all entries for diagnostics.
// Payloads are excluded; concurrent Get/Put are blocked only for the
// duration of the row scan.
func (s *Store) Export() ([]models.CacheEntryInfo, error) {
	rows, err := s.db.Query(
		`SELECT fingerprint, created_at, expires_at, hit_count, size_bytes
		 FROM cache_entries ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("cache export: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntryInfo
	for rows.Next() {
		var e models.CacheEntryInfo
		if err := rows.Scan(&e.Fingerprint, &e.CreatedAt, &e.ExpiresAt, &e.HitCount, &e.SizeBytes); err != nil {
			return nil, fmt.Errorf("cache export: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache export: %w", err)
	}
	return entries, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
