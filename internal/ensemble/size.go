package ensemble

import (
	"math"
	"sort"

	"github.com/ahrav/go-quorum/internal/domain"
)

// sizeSelector picks the candidate whose code length is closest to the
// median length of the eligible set, a proxy for typical rather than
// degenerate output (truncated stubs on one end, runaway boilerplate on
// the other).
type sizeSelector struct{}

func (s *sizeSelector) Name() string { return string(StrategySize) }

func (s *sizeSelector) Select(set domain.CandidateSet) domain.Selection {
	valid := set.Valid()
	if len(valid) == 0 {
		return noAnswer(s.Name())
	}

	median := medianLength(valid)

	bestIdx := 0
	bestDist := math.Inf(1)
	tied := false
	for i, c := range valid {
		dist := math.Abs(float64(len(c.Code)) - median)
		switch {
		case dist < bestDist:
			bestIdx, bestDist, tied = i, dist, false
		case dist == bestDist:
			tied = true
		}
	}

	tieBreak := ""
	if tied {
		tieBreak = "earliest attempt in enumeration order"
	}
	return selection(s.Name(), valid[bestIdx], tieBreak)
}

// medianLength returns the median code length; for even-sized sets this
// is the mean of the two middle lengths.
func medianLength(candidates []domain.Candidate) float64 {
	lengths := make([]int, len(candidates))
	for i, c := range candidates {
		lengths[i] = len(c.Code)
	}
	sort.Ints(lengths)

	mid := len(lengths) / 2
	if len(lengths)%2 == 1 {
		return float64(lengths[mid])
	}
	return float64(lengths[mid-1]+lengths[mid]) / 2
}
