package ensemble

import (
	"regexp"
	"strings"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Rule is one domain heuristic: a named scoring function over a
// candidate. Rules are applied in order and their scores summed.
type Rule struct {
	Name  string
	Score func(c domain.Candidate) float64
}

// heuristicsSelector applies an ordered rule list producing a scalar
// score per candidate and picks the maximum; ties break to the earliest
// attempt in enumeration order.
type heuristicsSelector struct {
	rules []Rule
}

func (s *heuristicsSelector) Name() string { return string(StrategyHeuristics) }

func (s *heuristicsSelector) Select(set domain.CandidateSet) domain.Selection {
	valid := set.Valid()
	if len(valid) == 0 {
		return noAnswer(s.Name())
	}

	bestIdx := 0
	bestScore := 0.0
	tied := false
	for i, c := range valid {
		score := 0.0
		for _, rule := range s.rules {
			score += rule.Score(c)
		}
		switch {
		case i == 0 || score > bestScore:
			bestIdx, bestScore, tied = i, score, false
		case score == bestScore:
			tied = true
		}
	}

	tieBreak := ""
	if tied {
		tieBreak = "earliest attempt in enumeration order"
	}
	return selection(s.Name(), valid[bestIdx], tieBreak)
}

var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// placeholderMarkers are fragments that indicate the provider emitted a
// template instead of runnable code.
var placeholderMarkers = []string{"TODO", "FIXME", "...", "<placeholder>", "your_", "<insert"}

// defaultRules builds the ordered rule list from the run options.
func defaultRules(opts Options) []Rule {
	rules := []Rule{
		{
			Name: "penalize_placeholders",
			Score: func(c domain.Candidate) float64 {
				penalty := 0.0
				for _, marker := range placeholderMarkers {
					if strings.Contains(c.Code, marker) {
						penalty -= 5
					}
				}
				return penalty
			},
		},
		{
			Name: "penalize_degenerate_length",
			Score: func(c domain.Candidate) float64 {
				if len(strings.TrimSpace(c.Code)) < 10 {
					return -3
				}
				return 0
			},
		},
		{
			Name: "reward_explanation",
			Score: func(c domain.Candidate) float64 {
				if strings.TrimSpace(c.Explanation) != "" {
					return 1
				}
				return 0
			},
		},
	}

	if len(opts.KnownIdentifiers) > 0 {
		known := make(map[string]struct{}, len(opts.KnownIdentifiers))
		for _, id := range opts.KnownIdentifiers {
			known[strings.ToLower(id)] = struct{}{}
		}
		rules = append(rules, Rule{
			Name: "penalize_unknown_identifiers",
			Score: func(c domain.Candidate) float64 {
				penalty := 0.0
				for _, tok := range identifierPattern.FindAllString(c.Code, -1) {
					if _, ok := known[strings.ToLower(tok)]; !ok {
						penalty--
					}
				}
				return penalty
			},
		})
	}

	if len(opts.RequiredFields) > 0 {
		fields := append([]string(nil), opts.RequiredFields...)
		rules = append(rules, Rule{
			Name: "reward_required_fields",
			Score: func(c domain.Candidate) float64 {
				reward := 0.0
				lower := strings.ToLower(c.Code)
				for _, field := range fields {
					if strings.Contains(lower, strings.ToLower(field)) {
						reward += 2
					}
				}
				return reward
			},
		})
	}

	return rules
}
