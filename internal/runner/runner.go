package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-quorum/internal/aggregation"
	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ensemble"
	"github.com/ahrav/go-quorum/internal/evaluation"
	"github.com/ahrav/go-quorum/internal/pool"
	"github.com/ahrav/go-quorum/pkg/events"
)

// Runner drives one evaluation run end to end. Collaborators are passed
// in explicitly; the runner holds no ambient globals.
type Runner struct {
	runID            string
	pool             *pool.Pool
	selector         ensemble.Selector
	evaluator        *evaluation.Evaluator
	aggregator       *aggregation.Aggregator
	sink             events.EventSink
	logger           *slog.Logger
	correctionBudget int
}

// Params collects the runner's dependencies.
type Params struct {
	// RunID labels the run in events and artifacts.
	RunID string

	// Pool is the keyed worker pool used for generation.
	Pool *pool.Pool

	// Selector is the ensemble strategy chosen for this run.
	Selector ensemble.Selector

	// Evaluator executes and scores selections.
	Evaluator *evaluation.Evaluator

	// CorrectionBudget bounds re-selections after query errors.
	CorrectionBudget int

	// Sink receives best-effort run events. Nil disables emission.
	Sink events.EventSink

	// Logger receives run progress. Nil disables logging.
	Logger *slog.Logger
}

// New creates a runner.
func New(p Params) *Runner {
	if p.Sink == nil {
		p.Sink = events.NewNoOpEventSink()
	}
	if p.Logger == nil {
		p.Logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		runID:            p.RunID,
		pool:             p.Pool,
		selector:         p.Selector,
		evaluator:        p.Evaluator,
		aggregator:       aggregation.New(),
		sink:             p.Sink,
		logger:           p.Logger,
		correctionBudget: p.CorrectionBudget,
	}
}

// Result is the run's complete output.
type Result struct {
	Summary domain.RunSummary
	Records []aggregation.QuestionRecord
}

// Run evaluates every question and returns the aggregate result. A run
// always completes and produces a summary: questions that fail every
// stage are reported as misses with the detailed reason retained, never
// silently dropped.
func (r *Runner) Run(ctx context.Context, questions []domain.Question, configs []domain.Configuration) (*Result, error) {
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid question %d: %w", i, err)
		}
	}
	for i := range configs {
		if err := configs[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration %d: %w", i, err)
		}
	}

	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	start := time.Now()
	r.logger.Info("run started",
		"run_id", r.runID,
		"questions", len(questions),
		"configurations", len(configs),
		"workers", r.pool.NumWorkers(),
		"strategy", r.selector.Name())

	// The pool emits each question's candidate set once its join barrier
	// releases; selection and evaluation happen here, question by
	// question, while other questions are still generating.
	for set := range r.pool.Run(ctx, questions, configs) {
		q, ok := byID[set.QuestionID]
		if !ok {
			continue
		}
		genElapsed := time.Since(start)
		r.scoreQuestion(ctx, q, set, genElapsed)
	}

	result := &Result{
		Summary: r.aggregator.Summary(),
		Records: r.aggregator.Records(),
	}
	r.logger.Info("run finished",
		"run_id", r.runID,
		"total_questions", result.Summary.TotalQuestions,
		"exact_hits", result.Summary.Hits.Exact,
		"flexible_hits", result.Summary.Hits.Flexible,
		"timeouts", result.Summary.Timeouts,
		"query_errors", result.Summary.QueryErrors,
		"elapsed", time.Since(start))
	return result, nil
}

// scoreQuestion walks one question through the lifecycle state machine:
// selection, evaluation, and the bounded correction loop that retires a
// candidate whose code fails execution and re-selects from the rest.
func (r *Runner) scoreQuestion(ctx context.Context, q domain.Question, set domain.CandidateSet, genElapsed time.Duration) {
	lifecycle := domain.NewLifecycle(q.ID, r.correctionBudget)
	r.forceTransition(lifecycle, domain.StateGenerating)
	r.forceTransition(lifecycle, domain.StateSelecting)

	working := set
	var outcome domain.Outcome
	for {
		sel := r.selector.Select(working)
		if sel.NoAnswer {
			outcome = r.evaluator.Evaluate(ctx, q, sel, genElapsed)
			r.forceTransition(lifecycle, domain.StateTerminal)
			break
		}

		r.forceTransition(lifecycle, domain.StateEvaluating)
		outcome = r.evaluator.Evaluate(ctx, q, sel, genElapsed)

		if outcome.Status == domain.OutcomeStatusQueryError {
			if err := lifecycle.Correct(); err == nil {
				r.logger.Debug("query error, retiring candidate and re-selecting",
					"question_id", q.ID,
					"config_index", sel.Candidate.ConfigIndex,
					"attempt", sel.Candidate.Attempt,
					"corrections", lifecycle.Corrections())
				working = working.Without(sel.Candidate.ConfigIndex, sel.Candidate.Attempt)
				r.forceTransition(lifecycle, domain.StateSelecting)
				continue
			} else if !errors.Is(err, domain.ErrCorrectionBudgetExhausted) {
				r.logger.Error("lifecycle correction failed", "question_id", q.ID, "error", err)
			}
		}

		r.forceTransition(lifecycle, domain.StateTerminal)
		break
	}
	outcome.Corrections = lifecycle.Corrections()

	// The upper bound always runs over the original set, including
	// candidates the correction loop retired.
	upper := r.evaluator.UpperBound(ctx, q, set)

	r.aggregator.Record(q, set, outcome, upper)
	r.emitScored(ctx, q, outcome)
}

// forceTransition applies a transition the state machine is known to
// permit at the call site; a rejection indicates a bug in the runner's
// sequencing, which is worth a log line but must not abort the run.
func (r *Runner) forceTransition(l *domain.Lifecycle, next domain.LifecycleState) {
	if err := l.Transition(next); err != nil {
		r.logger.Error("unexpected lifecycle transition rejection",
			"from", l.State(), "to", next)
	}
}

// emitScored publishes the per-question terminal event, best-effort.
func (r *Runner) emitScored(ctx context.Context, q domain.Question, outcome domain.Outcome) {
	payload := struct {
		Status      domain.OutcomeStatus     `json:"status"`
		Verdict     domain.ComparisonVerdict `json:"verdict"`
		Strategy    string                   `json:"strategy"`
		Corrections int                      `json:"corrections"`
		ElapsedMs   int64                    `json:"elapsed_ms"`
	}{outcome.Status, outcome.Verdict, outcome.Selection.Strategy, outcome.Corrections, outcome.Elapsed.Milliseconds()}

	idemKey := fmt.Sprintf("%s:%s:scored", r.runID, q.ID)
	env, err := events.NewEnvelope("runner.question_scored", "runner", r.runID, q.ID, idemKey, payload)
	if err != nil {
		r.logger.Warn("event payload marshal failed", "question_id", q.ID, "error", err)
		return
	}
	if err := r.sink.Append(ctx, env); err != nil {
		r.logger.Warn("event emission failed", "question_id", q.ID, "error", err)
	}
}
