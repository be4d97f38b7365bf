package ensemble

import "github.com/ahrav/go-quorum/internal/domain"

// frequencySelector implements majority voting over canonicalized code.
// The normalized form with the highest occurrence count wins; when two
// forms share the top count, the form whose first occurrence is earliest
// in enumeration order wins, and within the winning form the earliest
// candidate is returned.
type frequencySelector struct{}

func (s *frequencySelector) Name() string { return string(StrategyFrequency) }

func (s *frequencySelector) Select(set domain.CandidateSet) domain.Selection {
	valid := set.Valid()
	if len(valid) == 0 {
		return noAnswer(s.Name())
	}

	counts := make(map[string]int, len(valid))
	firstIndex := make(map[string]int, len(valid))
	for i, c := range valid {
		form := Canonicalize(c.Code)
		counts[form]++
		if _, seen := firstIndex[form]; !seen {
			firstIndex[form] = i
		}
	}

	bestForm := ""
	bestCount := -1
	tied := false
	for form, count := range counts {
		switch {
		case count > bestCount:
			bestForm, bestCount, tied = form, count, false
		case count == bestCount:
			tied = true
			// Deterministic resolution: earliest first occurrence wins.
			if firstIndex[form] < firstIndex[bestForm] {
				bestForm = form
			}
		}
	}

	tieBreak := ""
	if tied {
		tieBreak = "earliest attempt in enumeration order"
	}
	return selection(s.Name(), valid[firstIndex[bestForm]], tieBreak)
}
