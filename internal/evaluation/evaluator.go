package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Evaluator executes selections via the external Executor and classifies
// the outcome. Execution runs under the same wall-clock timeout policy
// as generation; every failure mode is converted into a typed outcome
// status, never propagated as a fault.
type Evaluator struct {
	exec    Executor
	timeout time.Duration
	logger  *slog.Logger
}

// NewEvaluator creates an evaluator. A zero timeout disables the
// per-execution deadline; a nil logger disables logging.
func NewEvaluator(exec Executor, timeout time.Duration, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{exec: exec, timeout: timeout, logger: logger}
}

// Evaluate executes the selection's code, compares the result against
// ground truth under every equivalence rule, and records the outcome.
// genElapsed is the generation wall-clock time for this question; the
// recorded elapsed time covers generation plus execution.
//
// A no-answer selection is always a miss with no comparator invocation.
func (e *Evaluator) Evaluate(ctx context.Context, q domain.Question, sel domain.Selection, genElapsed time.Duration) domain.Outcome {
	start := time.Now()
	outcome := domain.Outcome{
		QuestionID: q.ID,
		Selection:  sel,
	}
	finish := func(o domain.Outcome) domain.Outcome {
		o.Elapsed = genElapsed + time.Since(start)
		return o
	}

	if sel.NoAnswer || sel.Candidate == nil {
		outcome.Status = domain.OutcomeStatusMiss
		outcome.ErrorDetail = "no eligible candidates"
		return finish(outcome)
	}

	gold, err := e.groundTruth(ctx, q)
	if err != nil {
		outcome.Status = domain.OutcomeStatusMiss
		outcome.ErrorDetail = "ground truth unavailable: " + err.Error()
		return finish(outcome)
	}

	table, err := e.run(ctx, sel.Candidate.Code, q.Dataset)
	if err != nil {
		var qerr *QueryError
		switch {
		case errors.As(err, &qerr):
			outcome.Status = domain.OutcomeStatusQueryError
			outcome.ErrorDetail = qerr.Error()
		case errors.Is(err, context.DeadlineExceeded):
			outcome.Status = domain.OutcomeStatusTimeout
			outcome.ErrorDetail = "execution deadline exceeded"
		default:
			outcome.Status = domain.OutcomeStatusQueryError
			outcome.ErrorDetail = err.Error()
		}
		return finish(outcome)
	}

	outcome.Verdict = Compare(gold, table)
	if outcome.Verdict.Any() {
		outcome.Status = domain.OutcomeStatusHit
	} else {
		outcome.Status = domain.OutcomeStatusMiss
	}
	return finish(outcome)
}

// UpperBound re-runs the comparator against every ok candidate in the
// set and folds the verdicts rule-wise: a rule counts as an upper-bound
// hit when any candidate matches under it. This is the best outcome an
// oracle selector could have achieved. Execution failures of individual
// candidates contribute nothing and are never fatal.
func (e *Evaluator) UpperBound(ctx context.Context, q domain.Question, set domain.CandidateSet) domain.ComparisonVerdict {
	var bound domain.ComparisonVerdict

	gold, err := e.groundTruth(ctx, q)
	if err != nil {
		return bound
	}

	for _, cand := range set.Valid() {
		if bound.Exact && bound.ColumnOrderAgnostic && bound.Flexible {
			break
		}
		table, err := e.run(ctx, cand.Code, q.Dataset)
		if err != nil {
			e.logger.Debug("upper-bound candidate failed execution",
				"question_id", q.ID, "config_index", cand.ConfigIndex,
				"attempt", cand.Attempt, "error", err)
			continue
		}
		bound = bound.Or(Compare(gold, table))
	}
	return bound
}

// groundTruth returns the question's ground-truth table, materializing
// it via the Executor when only reference code is supplied.
func (e *Evaluator) groundTruth(ctx context.Context, q domain.Question) (*domain.ResultTable, error) {
	if q.GroundTruth != nil {
		return q.GroundTruth, nil
	}
	if q.GroundTruthCode == "" {
		return nil, errors.New("question has no ground truth")
	}
	return e.run(ctx, q.GroundTruthCode, q.Dataset)
}

// run executes code under the evaluator's deadline. The Executor runs in
// its own goroutine so an implementation that ignores cancellation still
// cannot hold the caller past the deadline.
func (e *Evaluator) run(ctx context.Context, code, dataset string) (*domain.ResultTable, error) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	type result struct {
		table *domain.ResultTable
		err   error
	}
	done := make(chan result, 1)
	go func() {
		table, err := e.exec.Run(runCtx, code, dataset)
		done <- result{table: table, err: err}
	}()

	select {
	case res := <-done:
		return res.table, res.err
	case <-runCtx.Done():
		return nil, runCtx.Err()
	}
}
