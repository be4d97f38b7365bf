package pool

import (
	"sync/atomic"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Stats holds the pool's atomic counters.
type Stats struct {
	units    atomic.Int64
	ok       atomic.Int64
	failures atomic.Int64
	timeouts atomic.Int64
}

func (s *Stats) recordUnit(status domain.CandidateStatus) {
	s.units.Add(1)
	switch status {
	case domain.CandidateStatusOK:
		s.ok.Add(1)
	case domain.CandidateStatusTimeout:
		s.timeouts.Add(1)
	default:
		s.failures.Add(1)
	}
}

// StatsSnapshot is a point-in-time copy of the pool's counters.
type StatsSnapshot struct {
	// Units is the total number of work units executed.
	Units int64
	// OK counts units that produced an ok candidate.
	OK int64
	// Failures counts generation-error and empty candidates.
	Failures int64
	// Timeouts counts units abandoned at their deadline.
	Timeouts int64
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Units:    s.units.Load(),
		OK:       s.ok.Load(),
		Failures: s.failures.Load(),
		Timeouts: s.timeouts.Load(),
	}
}
