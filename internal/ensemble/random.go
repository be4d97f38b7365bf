package ensemble

import (
	"hash/fnv"
	"math/rand/v2"

	"github.com/ahrav/go-quorum/internal/domain"
)

// randomSelector is the uniform-random baseline. The generator is seeded
// from the run seed combined with the question ID, so a given question
// always draws the same candidate within a run no matter which worker
// handled it or in what order questions complete.
type randomSelector struct {
	seed int64
}

func (s *randomSelector) Name() string { return string(StrategyRandom) }

func (s *randomSelector) Select(set domain.CandidateSet) domain.Selection {
	valid := set.Valid()
	if len(valid) == 0 {
		return noAnswer(s.Name())
	}

	rng := rand.New(rand.NewPCG(uint64(s.seed), questionSeed(set.QuestionID))) // #nosec G404 -- reproducible sampling, not cryptography
	return selection(s.Name(), valid[rng.IntN(len(valid))], "")
}

// questionSeed derives a stable per-question seed component via FNV-1a.
func questionSeed(questionID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(questionID)) //nolint:errcheck // fnv never fails
	return h.Sum64()
}
