package generation

import "sync/atomic"

// Stats holds the factory's atomic counters.
type Stats struct {
	invocations     atomic.Int64
	transientErrors atomic.Int64
	terminalErrors  atomic.Int64
	timeouts        atomic.Int64
}

func (s *Stats) recordInvocation()     { s.invocations.Add(1) }
func (s *Stats) recordTransientError() { s.transientErrors.Add(1) }
func (s *Stats) recordTerminalError()  { s.terminalErrors.Add(1) }
func (s *Stats) recordTimeout()        { s.timeouts.Add(1) }

// StatsSnapshot is a point-in-time copy of the factory's counters.
type StatsSnapshot struct {
	// Invocations is the total number of Translator calls made.
	Invocations int64
	// TransientErrors counts retried provider/network failures.
	TransientErrors int64
	// TerminalErrors counts attempts surfaced as generation-error candidates.
	TerminalErrors int64
	// Timeouts counts attempts abandoned at their wall-clock deadline.
	Timeouts int64
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Invocations:     s.invocations.Load(),
		TransientErrors: s.transientErrors.Load(),
		TerminalErrors:  s.terminalErrors.Load(),
		Timeouts:        s.timeouts.Load(),
	}
}
