package cache //nolint:testpackage // Need access to the unexported db to plant corrupt entries

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testFingerprint(attempt int) domain.Fingerprint {
	q := domain.Question{ID: "q1", Text: "total sales per region"}
	cfg := domain.Configuration{
		Provider: "google", Model: "gemini-2.5-pro", Temperature: 0.2,
		RetryBudget: 3, Attempts: 3,
	}
	return domain.NewFingerprint(q, cfg, attempt)
}

func testCandidate(code string) domain.Candidate {
	return domain.Candidate{
		QuestionID: "q1",
		Code:       code,
		Status:     domain.CandidateStatusOK,
	}
}

// TestStore_GetMiss verifies a cold lookup is a miss, not an error.
func TestStore_GetMiss(t *testing.T) {
	store := openTestStore(t)

	_, found, err := store.Get("ns", testFingerprint(0))
	require.NoError(t, err)
	assert.False(t, found)
	assert.EqualValues(t, 1, store.Stats().Misses)
}

// TestStore_PutGetRoundtrip verifies candidates survive storage intact.
func TestStore_PutGetRoundtrip(t *testing.T) {
	store := openTestStore(t)
	fp := testFingerprint(0)
	cand := testCandidate("SELECT a FROM t")
	cand.Explanation = "sums sales by region"

	stored, err := store.Put("ns", fp, cand)
	require.NoError(t, err)
	assert.Equal(t, cand.Code, stored.Code)

	got, found, err := store.Get("ns", fp)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, cand.Code, got.Code)
	assert.Equal(t, cand.Explanation, got.Explanation)
	assert.Equal(t, domain.CandidateStatusOK, got.Status)
}

// TestStore_FirstWriterWins verifies that a second Put for the same
// fingerprint is discarded, not merged: the loser receives the winner's
// candidate back.
func TestStore_FirstWriterWins(t *testing.T) {
	store := openTestStore(t)
	fp := testFingerprint(0)

	first, err := store.Put("ns", fp, testCandidate("SELECT a"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT a", first.Code)

	second, err := store.Put("ns", fp, testCandidate("SELECT b"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT a", second.Code, "loser's write must be discarded")

	got, found, err := store.Get("ns", fp)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "SELECT a", got.Code)
}

// TestStore_NamespaceIsolation verifies that the same fingerprint under
// different namespaces maps to distinct entries.
func TestStore_NamespaceIsolation(t *testing.T) {
	store := openTestStore(t)
	fp := testFingerprint(0)

	_, err := store.Put("exp_a", fp, testCandidate("SELECT a"))
	require.NoError(t, err)

	_, found, err := store.Get("exp_b", fp)
	require.NoError(t, err)
	assert.False(t, found)
}

// TestStore_CorruptEntryIsMiss verifies self-healing: an unreadable
// entry reads as a miss and loses to the next write.
func TestStore_CorruptEntryIsMiss(t *testing.T) {
	store := openTestStore(t)
	fp := testFingerprint(0)
	key := entryKey("ns", fp)

	require.NoError(t, store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte("not json at all"))
	}))

	_, found, err := store.Get("ns", fp)
	require.NoError(t, err)
	assert.False(t, found)
	assert.EqualValues(t, 1, store.Stats().Corruptions)

	// Regeneration overwrites the corrupt entry.
	stored, err := store.Put("ns", fp, testCandidate("SELECT fixed"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT fixed", stored.Code)

	got, found, err := store.Get("ns", fp)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "SELECT fixed", got.Code)
}

// TestStore_ConcurrentSameKeyWriters verifies that workers racing on one
// fingerprint serialize: exactly one candidate version survives and
// every racer observes that same version.
func TestStore_ConcurrentSameKeyWriters(t *testing.T) {
	store := openTestStore(t)
	fp := testFingerprint(0)

	const writers = 16
	results := make([]domain.Candidate, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := store.Put("ns", fp, testCandidate(fmt.Sprintf("SELECT %d", i)))
			assert.NoError(t, err)
			results[i] = stored
		}(i)
	}
	wg.Wait()

	winner, found, err := store.Get("ns", fp)
	require.NoError(t, err)
	require.True(t, found)
	for i := range results {
		assert.Equal(t, winner.Code, results[i].Code)
	}
}

// TestStore_ConcurrentDisjointWriters verifies that writers on distinct
// fingerprints all land their own entries.
func TestStore_ConcurrentDisjointWriters(t *testing.T) {
	store := openTestStore(t)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Put("ns", testFingerprint(i), testCandidate(fmt.Sprintf("SELECT %d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		got, found, err := store.Get("ns", testFingerprint(i))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, fmt.Sprintf("SELECT %d", i), got.Code)
	}
}
