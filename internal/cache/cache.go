// Package cache provides the persistent prediction cache: a file-backed
// key/value store mapping fingerprints to previously generated candidates.
// It guarantees at-most-one paid generation per fingerprint across worker
// goroutines, process restarts, and runs sharing the same cache path.
//
// The store is built on BadgerDB. Same-key writes serialize inside a
// transaction where the first writer wins; disjoint-key writes and all
// reads proceed without contention. Unreadable entries are treated as
// misses and overwritten, never surfaced as fatal errors.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/ahrav/go-quorum/internal/domain"
)

// keyPrefix namespaces prediction entries within the store so the same
// path can host future entry kinds without key collisions.
const keyPrefix = "pred"

// ErrClosed indicates an operation on a closed store.
var ErrClosed = errors.New("prediction cache closed")

// Config holds the settings for opening a prediction cache.
type Config struct {
	// Path is the directory for the store's files. Ignored when InMemory
	// is set.
	Path string

	// InMemory opens a non-persistent store. Useful for testing.
	InMemory bool

	// SyncWrites forces each write to disk before returning. Slower but
	// survives process crashes mid-run.
	SyncWrites bool

	// Logger receives store lifecycle and corruption messages.
	// A nil logger disables logging.
	Logger *slog.Logger
}

// Store is the process-shared prediction cache. All methods are safe for
// concurrent use.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	stats  Stats
}

// Open opens or creates the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open prediction cache at %q: %w", cfg.Path, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying store. Safe to call once.
func (s *Store) Close() error { return s.db.Close() }

// entryKey builds the stored key for a fingerprint under a namespace.
// The format is "pred:{namespace}:{fingerprint}".
func entryKey(namespace string, fp domain.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", keyPrefix, namespace, fp))
}

// Get returns the cached candidate for fp, or found=false on a miss.
// A present-but-unreadable entry is a miss: the caller regenerates and
// the corrupt entry is overwritten by the subsequent Put.
func (s *Store) Get(namespace string, fp domain.Fingerprint) (domain.Candidate, bool, error) {
	var (
		cand  domain.Candidate
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(namespace, fp))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if jsonErr := json.Unmarshal(val, &cand); jsonErr != nil {
				// Corrupt entry: self-heal via regeneration.
				s.stats.recordCorruption()
				s.logger.Warn("prediction cache entry unreadable, treating as miss",
					"fingerprint", fp.String(), "error", jsonErr)
				return nil
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return domain.Candidate{}, false, fmt.Errorf("prediction cache get: %w", err)
	}
	if found {
		s.stats.recordHit()
	} else {
		s.stats.recordMiss()
	}
	return cand, found, nil
}

// Put stores cand under fp with first-writer-wins semantics: if a
// readable entry already exists the write is discarded, not merged, and
// the existing candidate is returned. This keeps Put idempotent so
// concurrent workers racing on one fingerprint cannot corrupt the store
// or trigger a second paid generation.
func (s *Store) Put(namespace string, fp domain.Fingerprint, cand domain.Candidate) (domain.Candidate, error) {
	key := entryKey(namespace, fp)
	stored := cand

	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if err == nil {
				var existing domain.Candidate
				valErr := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &existing)
				})
				if valErr == nil {
					// First writer won; discard ours.
					stored = existing
					return nil
				}
				// Corrupt entry loses to the fresh write.
				s.stats.recordCorruption()
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			raw, err := json.Marshal(cand)
			if err != nil {
				return fmt.Errorf("marshal candidate: %w", err)
			}
			stored = cand
			return txn.Set(key, raw)
		})
		if errors.Is(err, badger.ErrConflict) {
			// A same-key writer committed first; retry to observe its entry.
			continue
		}
		if err != nil {
			return domain.Candidate{}, fmt.Errorf("prediction cache put: %w", err)
		}
		s.stats.recordWrite()
		return stored, nil
	}
}

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() StatsSnapshot { return s.stats.snapshot() }
