// Package cache stores compiled bytecode chunks in SQLite, keyed by a
// hash of the source text. Recompiling an unchanged file becomes a
// single lookup.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/eatonphil/lust/pkg/bytecode"
)

// ErrMiss indicates no cached chunk exists for the source.
var ErrMiss = errors.New("cache miss")

var log = commonlog.GetLogger("lust.cache")

// Store is a SQLite-backed chunk cache. Safe for concurrent use.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open opens (or creates) a cache database at the given path.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		source_hash TEXT PRIMARY KEY,
		format_version INTEGER NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// OpenDefault opens the cache at $LUST_CACHE_DB, falling back to
// ~/.lust/cache.db.
func OpenDefault() (*Store, error) {
	dbPath := os.Getenv("LUST_CACHE_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		dbPath = filepath.Join(home, ".lust", "cache.db")
	}
	return Open(dbPath)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Key returns the cache key for a source text.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Put stores the compiled chunk for a source text, replacing any
// previous entry.
func (s *Store) Put(source string, chunk *bytecode.Chunk) error {
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		return fmt.Errorf("serializing chunk: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key(source)
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO chunks (source_hash, format_version, data) VALUES (?, ?, ?)",
		key, bytecode.WireVersion, data,
	)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}

	log.Debugf("stored chunk %s (%d bytes)", key[:12], len(data))
	return nil
}

// Get retrieves the compiled chunk for a source text. Returns ErrMiss
// when no entry exists; entries written by an older format version are
// treated as misses.
func (s *Store) Get(source string) (*bytecode.Chunk, error) {
	key := Key(source)

	var version int
	var data []byte
	err := s.db.QueryRow(
		"SELECT format_version, data FROM chunks WHERE source_hash = ?", key,
	).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying chunk: %w", err)
	}

	if version != bytecode.WireVersion {
		log.Infof("discarding chunk %s with stale format version %d", key[:12], version)
		return nil, ErrMiss
	}

	chunk, err := bytecode.UnmarshalChunk(data)
	if err != nil {
		// A corrupt entry is a miss; the caller recompiles and overwrites.
		log.Errorf("corrupt cached chunk %s: %v", key[:12], err)
		return nil, ErrMiss
	}

	log.Debugf("loaded chunk %s (%d bytes)", key[:12], len(data))
	return chunk, nil
}

// Purge removes every cached chunk.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}

// Count returns the number of cached chunks.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
