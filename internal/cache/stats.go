package cache

import "sync/atomic"

// Stats holds the store's atomic counters. All recording methods are
// safe for concurrent use.
type Stats struct {
	hits        atomic.Int64
	misses      atomic.Int64
	writes      atomic.Int64
	corruptions atomic.Int64
}

func (s *Stats) recordHit()        { s.hits.Add(1) }
func (s *Stats) recordMiss()       { s.misses.Add(1) }
func (s *Stats) recordWrite()      { s.writes.Add(1) }
func (s *Stats) recordCorruption() { s.corruptions.Add(1) }

// StatsSnapshot is a point-in-time copy of the store's counters.
type StatsSnapshot struct {
	// Hits is the total number of cache hits.
	Hits int64
	// Misses is the total number of cache misses.
	Misses int64
	// Writes is the total number of Put calls that reached the store,
	// including discarded loser writes.
	Writes int64
	// Corruptions is the number of unreadable entries encountered and
	// treated as misses.
	Corruptions int64
	// HitRate is the ratio of hits to total lookups.
	HitRate float64
}

func (s *Stats) snapshot() StatsSnapshot {
	hits := s.hits.Load()
	misses := s.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return StatsSnapshot{
		Hits:        hits,
		Misses:      misses,
		Writes:      s.writes.Load(),
		Corruptions: s.corruptions.Load(),
		HitRate:     hitRate,
	}
}
