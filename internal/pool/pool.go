package pool

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Producer yields one candidate per work unit. Satisfied by
// *generation.Factory; narrowed to an interface so pool tests can stub
// generation entirely.
type Producer interface {
	Produce(ctx context.Context, q domain.Question, cfg domain.Configuration, configIndex, attempt int, credential string) domain.Candidate
}

// WorkUnit is one (question, configuration, attempt) triple. Units are
// enumerated as the Cartesian product of all questions and, for each
// configuration, its requested attempt indices.
type WorkUnit struct {
	Question    domain.Question
	Config      domain.Configuration
	ConfigIndex int
	Attempt     int
}

// Config holds worker pool settings.
type Config struct {
	// ProcessesPerKey is how many workers multiplex on each credential.
	ProcessesPerKey int

	// UnitTimeout is the wall-clock budget per work unit. On expiry the
	// unit is abandoned and recorded as a timeout candidate; the worker
	// moves on. Zero disables the per-unit deadline.
	UnitTimeout time.Duration

	// RatePerKey throttles Translator calls per credential per second.
	// Zero means unlimited.
	RatePerKey float64

	// BurstPerKey is the limiter burst size. Defaults to 1 when rate
	// limiting is enabled.
	BurstPerKey int

	// Logger receives pool lifecycle messages. Nil disables logging.
	Logger *slog.Logger
}

// Pool is the keyed worker pool: K credentials x ProcessesPerKey workers
// pulling work units from a shared queue with no ordering guarantee.
// It guarantees a per-question join barrier: a question's candidate set
// is only emitted once every one of its units has a terminal status.
type Pool struct {
	creds    *CredentialPool
	producer Producer
	cfg      Config
	limiters []*rate.Limiter
	logger   *slog.Logger
	stats    Stats
}

// New creates a worker pool over the given credentials and producer.
func New(creds *CredentialPool, producer Producer, cfg Config) *Pool {
	if cfg.ProcessesPerKey <= 0 {
		cfg.ProcessesPerKey = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	limiters := make([]*rate.Limiter, creds.Size())
	for i := range limiters {
		limit := rate.Inf
		burst := 1
		if cfg.RatePerKey > 0 {
			limit = rate.Limit(cfg.RatePerKey)
			if cfg.BurstPerKey > 0 {
				burst = cfg.BurstPerKey
			}
		}
		limiters[i] = rate.NewLimiter(limit, burst)
	}

	return &Pool{
		creds:    creds,
		producer: producer,
		cfg:      cfg,
		limiters: limiters,
		logger:   cfg.Logger,
	}
}

// NumWorkers returns the pool's parallelism: K x ProcessesPerKey.
func (p *Pool) NumWorkers() int { return p.creds.Size() * p.cfg.ProcessesPerKey }

// Run enumerates all work units for questions x configs, executes them
// across the pool's workers, and emits one CandidateSet per question on
// the returned channel as soon as that question's join barrier releases.
// The channel closes after every question has been emitted. Run never
// fails: cancellation converts unfinished units into timeout candidates
// so downstream stages always receive a complete set per question.
func (p *Pool) Run(ctx context.Context, questions []domain.Question, configs []domain.Configuration) <-chan domain.CandidateSet {
	unitsPerQuestion := 0
	for _, cfg := range configs {
		unitsPerQuestion += cfg.Attempts
	}

	out := make(chan domain.CandidateSet, len(questions))

	// Degenerate run: nothing to generate, but the contract still owes
	// one (empty) set per question.
	if unitsPerQuestion == 0 {
		for _, q := range questions {
			out <- domain.CandidateSet{QuestionID: q.ID}
		}
		close(out)
		return out
	}

	numWorkers := p.NumWorkers()
	units := make(chan WorkUnit)
	results := make(chan domain.Candidate, numWorkers)

	// Enumerator. Workers drain the queue to completion even under
	// cancellation, so no select on ctx is needed here.
	go func() {
		defer close(units)
		for _, q := range questions {
			for ci, cfg := range configs {
				for attempt := 0; attempt < cfg.Attempts; attempt++ {
					units <- WorkUnit{Question: q, Config: cfg, ConfigIndex: ci, Attempt: attempt}
				}
			}
		}
	}()

	var g errgroup.Group
	for i := 0; i < numWorkers; i++ {
		credential := p.creds.ForWorker(i, p.cfg.ProcessesPerKey)
		limiter := p.limiters[p.creds.CredentialIndex(i, p.cfg.ProcessesPerKey)]
		g.Go(func() error {
			p.worker(ctx, credential, limiter, units, results)
			return nil
		})
	}

	go func() {
		g.Wait() //nolint:errcheck // workers never return errors
		close(results)
	}()

	go p.collect(questions, unitsPerQuestion, results, out)

	return out
}

// worker pulls units from the shared queue until it closes, binding one
// credential for its entire lifetime.
func (p *Pool) worker(ctx context.Context, credential string, limiter *rate.Limiter, units <-chan WorkUnit, results chan<- domain.Candidate) {
	for unit := range units {
		results <- p.execute(ctx, credential, limiter, unit)
	}
}

// execute runs one unit under the per-unit wall-clock budget. The
// producer runs in its own goroutine so a collaborator that ignores
// context cancellation still cannot hold the worker past the deadline;
// the abandoned goroutine's result is discarded into a buffered channel.
func (p *Pool) execute(ctx context.Context, credential string, limiter *rate.Limiter, unit WorkUnit) domain.Candidate {
	if err := limiter.Wait(ctx); err != nil {
		return p.timeoutCandidate(unit, "run cancelled before unit started")
	}

	unitCtx := ctx
	cancel := context.CancelFunc(func() {})
	if p.cfg.UnitTimeout > 0 {
		unitCtx, cancel = context.WithTimeout(ctx, p.cfg.UnitTimeout)
	}
	defer cancel()

	done := make(chan domain.Candidate, 1)
	go func() {
		done <- p.producer.Produce(unitCtx, unit.Question, unit.Config, unit.ConfigIndex, unit.Attempt, credential)
	}()

	select {
	case cand := <-done:
		p.stats.recordUnit(cand.Status)
		return cand
	case <-unitCtx.Done():
		p.logger.Warn("work unit abandoned at deadline",
			"question_id", unit.Question.ID,
			"config_index", unit.ConfigIndex,
			"attempt", unit.Attempt,
			"timeout", p.cfg.UnitTimeout)
		cand := p.timeoutCandidate(unit, "work unit deadline exceeded")
		p.stats.recordUnit(cand.Status)
		return cand
	}
}

func (p *Pool) timeoutCandidate(unit WorkUnit, detail string) domain.Candidate {
	return domain.Candidate{
		QuestionID:  unit.Question.ID,
		ConfigIndex: unit.ConfigIndex,
		Attempt:     unit.Attempt,
		Fingerprint: domain.NewFingerprint(unit.Question, unit.Config, unit.Attempt),
		Status:      domain.CandidateStatusTimeout,
		ErrorDetail: detail,
	}
}

// collect implements the per-question join barrier: it counts terminal
// candidates per question and emits a question's set only once all of
// its units have resolved. There is no global barrier; questions release
// independently and in no particular order.
func (p *Pool) collect(questions []domain.Question, unitsPerQuestion int, results <-chan domain.Candidate, out chan<- domain.CandidateSet) {
	defer close(out)

	sets := make(map[string]*domain.CandidateSet, len(questions))
	remaining := make(map[string]int, len(questions))
	for _, q := range questions {
		sets[q.ID] = &domain.CandidateSet{QuestionID: q.ID}
		remaining[q.ID] = unitsPerQuestion
	}

	for cand := range results {
		set, ok := sets[cand.QuestionID]
		if !ok {
			// A unit for an unknown question would be a programming
			// error in the enumerator; dropping it silently would
			// deadlock nothing, but it must surface somewhere.
			p.logger.Error("candidate for unknown question dropped", "question_id", cand.QuestionID)
			continue
		}
		set.Add(cand)
		remaining[cand.QuestionID]--
		if remaining[cand.QuestionID] == 0 {
			out <- *set
			delete(sets, cand.QuestionID)
		}
	}
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() StatsSnapshot { return p.stats.snapshot() }
