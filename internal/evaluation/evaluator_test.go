package evaluation //nolint:testpackage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/domain"
)

// stubExecutor maps code strings to canned tables or errors.
type stubExecutor struct {
	tables map[string]*domain.ResultTable
	errs   map[string]error
	sleep  time.Duration
}

func (s *stubExecutor) Run(ctx context.Context, code, dataset string) (*domain.ResultTable, error) {
	if s.sleep > 0 {
		time.Sleep(s.sleep)
	}
	if err, ok := s.errs[code]; ok {
		return nil, err
	}
	if tbl, ok := s.tables[code]; ok {
		return tbl, nil
	}
	return nil, &QueryError{Detail: "unknown code"}
}

func selectionOf(code string) domain.Selection {
	return domain.Selection{
		Candidate: &domain.Candidate{
			QuestionID: "q1", Code: code, Status: domain.CandidateStatusOK,
		},
		Strategy: "frequency",
	}
}

var goldTable = table([]string{"region", "total"}, []any{"east", 10}, []any{"west", 20})

func goldQuestion() domain.Question {
	return domain.Question{ID: "q1", Text: "totals by region", GroundTruth: goldTable}
}

func TestEvaluate_Hit(t *testing.T) {
	exec := &stubExecutor{tables: map[string]*domain.ResultTable{
		"SELECT good": table([]string{"region", "total"}, []any{"east", 10}, []any{"west", 20}),
	}}
	ev := NewEvaluator(exec, 0, nil)

	outcome := ev.Evaluate(context.Background(), goldQuestion(), selectionOf("SELECT good"), 2*time.Second)

	assert.Equal(t, domain.OutcomeStatusHit, outcome.Status)
	assert.True(t, outcome.Verdict.Exact)
	assert.True(t, outcome.Verdict.ColumnOrderAgnostic)
	assert.True(t, outcome.Verdict.Flexible)
	assert.GreaterOrEqual(t, outcome.Elapsed, 2*time.Second, "elapsed includes generation time")
}

func TestEvaluate_Miss(t *testing.T) {
	exec := &stubExecutor{tables: map[string]*domain.ResultTable{
		"SELECT wrong": table([]string{"region", "total"}, []any{"east", 99}),
	}}
	ev := NewEvaluator(exec, 0, nil)

	outcome := ev.Evaluate(context.Background(), goldQuestion(), selectionOf("SELECT wrong"), 0)

	assert.Equal(t, domain.OutcomeStatusMiss, outcome.Status)
	assert.False(t, outcome.Verdict.Any())
}

func TestEvaluate_NoAnswer(t *testing.T) {
	exec := &stubExecutor{}
	ev := NewEvaluator(exec, 0, nil)

	sel := domain.Selection{Strategy: "frequency", NoAnswer: true}
	outcome := ev.Evaluate(context.Background(), goldQuestion(), sel, 0)

	assert.Equal(t, domain.OutcomeStatusMiss, outcome.Status)
	assert.Contains(t, outcome.ErrorDetail, "no eligible candidates")
	assert.False(t, outcome.Verdict.Any(), "comparator must not run without a candidate")
}

func TestEvaluate_QueryError(t *testing.T) {
	exec := &stubExecutor{errs: map[string]error{
		"SELECT broken": &QueryError{Detail: "no such column: regin"},
	}}
	ev := NewEvaluator(exec, 0, nil)

	outcome := ev.Evaluate(context.Background(), goldQuestion(), selectionOf("SELECT broken"), 0)

	assert.Equal(t, domain.OutcomeStatusQueryError, outcome.Status)
	assert.Contains(t, outcome.ErrorDetail, "no such column")
}

func TestEvaluate_Timeout(t *testing.T) {
	exec := &stubExecutor{sleep: time.Second}
	ev := NewEvaluator(exec, 20*time.Millisecond, nil)

	start := time.Now()
	outcome := ev.Evaluate(context.Background(), goldQuestion(), selectionOf("SELECT slow"), 0)

	assert.Equal(t, domain.OutcomeStatusTimeout, outcome.Status)
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"deadline must abandon the executor, not wait it out")
}

func TestEvaluate_GroundTruthFromCode(t *testing.T) {
	exec := &stubExecutor{tables: map[string]*domain.ResultTable{
		"SELECT reference": table([]string{"n"}, []any{1}),
		"SELECT generated": table([]string{"n"}, []any{1}),
	}}
	ev := NewEvaluator(exec, 0, nil)

	q := domain.Question{ID: "q1", Text: "count", GroundTruthCode: "SELECT reference"}
	outcome := ev.Evaluate(context.Background(), q, selectionOf("SELECT generated"), 0)

	assert.Equal(t, domain.OutcomeStatusHit, outcome.Status)
}

func TestEvaluate_NoGroundTruth(t *testing.T) {
	ev := NewEvaluator(&stubExecutor{}, 0, nil)

	q := domain.Question{ID: "q1", Text: "count"}
	outcome := ev.Evaluate(context.Background(), q, selectionOf("SELECT x"), 0)

	assert.Equal(t, domain.OutcomeStatusMiss, outcome.Status)
	assert.Contains(t, outcome.ErrorDetail, "ground truth unavailable")
}

// TestUpperBound verifies rule-wise folding: a rule is an upper-bound hit
// when any ok candidate matches under it, even if the selected candidate
// missed.
func TestUpperBound(t *testing.T) {
	exec := &stubExecutor{
		tables: map[string]*domain.ResultTable{
			"SELECT exact":    table([]string{"region", "total"}, []any{"east", 10}, []any{"west", 20}),
			"SELECT permuted": table([]string{"total", "region"}, []any{10, "east"}, []any{20, "west"}),
			"SELECT wrong":    table([]string{"region", "total"}, []any{"east", 99}),
		},
		errs: map[string]error{
			"SELECT broken": &QueryError{Detail: "syntax error"},
		},
	}
	ev := NewEvaluator(exec, 0, nil)

	mkCand := func(attempt int, code string) domain.Candidate {
		return domain.Candidate{
			QuestionID: "q1", Attempt: attempt, Code: code,
			Status: domain.CandidateStatusOK,
		}
	}

	set := domain.CandidateSet{QuestionID: "q1", Candidates: []domain.Candidate{
		mkCand(0, "SELECT wrong"),
		mkCand(1, "SELECT broken"),
		mkCand(2, "SELECT permuted"),
	}}

	bound := ev.UpperBound(context.Background(), goldQuestion(), set)
	assert.False(t, bound.Exact)
	assert.True(t, bound.ColumnOrderAgnostic)
	assert.True(t, bound.Flexible)
}

func TestUpperBound_NoOKCandidates(t *testing.T) {
	ev := NewEvaluator(&stubExecutor{}, 0, nil)

	set := domain.CandidateSet{QuestionID: "q1", Candidates: []domain.Candidate{
		{QuestionID: "q1", Status: domain.CandidateStatusGenerationError},
	}}

	bound := ev.UpperBound(context.Background(), goldQuestion(), set)
	assert.False(t, bound.Any())
}

func TestQueryError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	qerr := &QueryError{Detail: "execution failed", Cause: cause}

	require.ErrorIs(t, qerr, cause)
	assert.Contains(t, qerr.Error(), "execution failed")
}
