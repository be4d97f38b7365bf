// Package ensemble reduces a question's candidate set to a single
// selection through one of a closed set of interchangeable strategies.
// Every strategy is a total, deterministic function over the eligible
// (ok-status) candidates: given the same set and seed it always returns
// the same selection. Ties break to the earliest attempt in the stable
// (configuration, attempt) enumeration order.
package ensemble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Strategy names the closed enumeration of selection strategies.
type Strategy string

const (
	// StrategyFrequency picks the most common canonicalized code form.
	StrategyFrequency Strategy = "frequency"

	// StrategyDensity picks the candidate with the highest ratio of
	// meaningful code to raw response text.
	StrategyDensity Strategy = "density"

	// StrategyRandom picks uniformly at random, seeded per question.
	StrategyRandom Strategy = "random"

	// StrategyHeuristics scores candidates through an ordered rule list.
	StrategyHeuristics Strategy = "heuristics"

	// StrategySize picks the candidate closest to the median code length.
	StrategySize Strategy = "size"
)

// ErrUnknownStrategy indicates a strategy name outside the closed set.
var ErrUnknownStrategy = errors.New("unknown ensemble strategy")

// DefaultSeed is the run seed when none is configured.
const DefaultSeed = 12345

// Options carries strategy construction parameters. Zero values select
// sensible defaults.
type Options struct {
	// Seed is the run-level random seed. Combined with each question ID
	// so random selection is reproducible within a run regardless of
	// worker scheduling. Zero means DefaultSeed.
	Seed int64

	// KnownIdentifiers, when non-empty, lets the heuristics strategy
	// penalize candidates referencing identifiers outside this set.
	KnownIdentifiers []string

	// RequiredFields, when non-empty, lets the heuristics strategy
	// reward candidates mentioning required output fields.
	RequiredFields []string
}

// Selector reduces one candidate set to one selection.
type Selector interface {
	// Name returns the strategy name recorded on every selection.
	Name() string

	// Select picks exactly one candidate from the set's eligible
	// candidates, or the no-answer sentinel when none are eligible.
	Select(set domain.CandidateSet) domain.Selection
}

// New constructs the named strategy. Dispatch is a closed lookup, not
// open-ended plugin loading.
func New(name Strategy, opts Options) (Selector, error) {
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	switch name {
	case StrategyFrequency:
		return &frequencySelector{}, nil
	case StrategyDensity:
		return &densitySelector{}, nil
	case StrategyRandom:
		return &randomSelector{seed: opts.Seed}, nil
	case StrategyHeuristics:
		return &heuristicsSelector{rules: defaultRules(opts)}, nil
	case StrategySize:
		return &sizeSelector{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Names returns every registered strategy name.
func Names() []Strategy {
	return []Strategy{StrategyFrequency, StrategyDensity, StrategyRandom, StrategyHeuristics, StrategySize}
}

// noAnswer is the designated sentinel for a question with zero ok
// candidates. Downstream it is always a miss with no comparator call.
func noAnswer(strategy string) domain.Selection {
	return domain.Selection{Strategy: strategy, NoAnswer: true}
}

// selection wraps a chosen candidate with its strategy and tie-break note.
func selection(strategy string, c domain.Candidate, tieBreak string) domain.Selection {
	return domain.Selection{Candidate: &c, Strategy: strategy, TieBreak: tieBreak}
}

// Canonicalize normalizes code for frequency counting: whitespace runs
// collapse to single spaces and a trailing statement terminator is
// dropped, making the count insensitive to formatting differences.
func Canonicalize(code string) string {
	normalized := strings.Join(strings.Fields(code), " ")
	return strings.TrimSuffix(normalized, ";")
}
