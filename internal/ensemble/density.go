package ensemble

import (
	"strings"
	"unicode"

	"github.com/ahrav/go-quorum/internal/domain"
)

// densitySelector rewards compact, non-boilerplate output: the density
// score is meaningful code length over raw response length, so a
// candidate whose response is mostly prose or comments scores low.
type densitySelector struct{}

func (s *densitySelector) Name() string { return string(StrategyDensity) }

func (s *densitySelector) Select(set domain.CandidateSet) domain.Selection {
	valid := set.Valid()
	if len(valid) == 0 {
		return noAnswer(s.Name())
	}

	bestIdx := 0
	bestScore := -1.0
	tied := false
	for i, c := range valid {
		score := densityScore(c)
		switch {
		case score > bestScore:
			bestIdx, bestScore, tied = i, score, false
		case score == bestScore:
			// Earlier attempt keeps the win.
			tied = true
		}
	}

	tieBreak := ""
	if tied {
		tieBreak = "earliest attempt in enumeration order"
	}
	return selection(s.Name(), valid[bestIdx], tieBreak)
}

// densityScore is meaningfulLength(code) / len(raw). The raw text falls
// back to the code itself when the provider response was not retained.
func densityScore(c domain.Candidate) float64 {
	raw := c.RawResponse
	if raw == "" {
		raw = c.Code
	}
	if len(raw) == 0 {
		return 0
	}
	return float64(meaningfulLength(c.Code)) / float64(len(raw))
}

// meaningfulLength counts non-whitespace runes on non-comment lines.
func meaningfulLength(code string) int {
	total := 0
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		for _, r := range trimmed {
			if !unicode.IsSpace(r) {
				total++
			}
		}
	}
	return total
}
