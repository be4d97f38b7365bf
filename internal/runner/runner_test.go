package runner //nolint:testpackage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ensemble"
	"github.com/ahrav/go-quorum/internal/evaluation"
	"github.com/ahrav/go-quorum/internal/pool"
	"github.com/ahrav/go-quorum/pkg/events"
)

// scriptedProducer returns candidates whose code is looked up by
// question ID and attempt index, without any translation or caching.
type scriptedProducer struct {
	codes map[string][]string // question ID -> code per attempt
}

func (s *scriptedProducer) Produce(_ context.Context, q domain.Question, _ domain.Configuration, configIndex, attempt int, _ string) domain.Candidate {
	cand := domain.Candidate{
		QuestionID:  q.ID,
		ConfigIndex: configIndex,
		Attempt:     attempt,
	}
	codes, ok := s.codes[q.ID]
	if !ok || attempt >= len(codes) {
		cand.Status = domain.CandidateStatusGenerationError
		cand.ErrorDetail = "no scripted output"
		return cand
	}
	cand.Code = codes[attempt]
	cand.Status = domain.CandidateStatusOK
	return cand
}

// scriptedExecutor maps code strings to tables or query errors.
type scriptedExecutor struct {
	tables map[string]*domain.ResultTable
}

func (s *scriptedExecutor) Run(_ context.Context, code, _ string) (*domain.ResultTable, error) {
	if tbl, ok := s.tables[code]; ok {
		return tbl, nil
	}
	return nil, &evaluation.QueryError{Detail: "no such table"}
}

// captureSink retains every envelope appended to it.
type captureSink struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (c *captureSink) Append(_ context.Context, env events.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envelopes = append(c.envelopes, env)
	return nil
}

func (c *captureSink) all() []events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.Envelope(nil), c.envelopes...)
}

var answerTable = &domain.ResultTable{
	Columns: []string{"n"},
	Rows:    [][]any{{1}},
}

func testRunner(t *testing.T, producer pool.Producer, exec evaluation.Executor, strategy ensemble.Strategy, budget int, sink events.EventSink) *Runner {
	t.Helper()

	creds, err := pool.NewCredentialPool([]string{"key-a"})
	require.NoError(t, err)

	selector, err := ensemble.New(strategy, ensemble.Options{})
	require.NoError(t, err)

	return New(Params{
		RunID:            "run-test",
		Pool:             pool.New(creds, producer, pool.Config{ProcessesPerKey: 2}),
		Selector:         selector,
		Evaluator:        evaluation.NewEvaluator(exec, time.Second, nil),
		CorrectionBudget: budget,
		Sink:             sink,
	})
}

func attemptsConfig(attempts int) []domain.Configuration {
	return []domain.Configuration{{
		Provider: "google", Model: "gemini-2.5-pro",
		CacheNamespace: "test", RetryBudget: 1, Attempts: attempts,
	}}
}

// TestRunner_EndToEnd drives two questions through generation, majority
// selection, evaluation, and aggregation.
func TestRunner_EndToEnd(t *testing.T) {
	producer := &scriptedProducer{codes: map[string][]string{
		"q1": {"SELECT right", "SELECT right", "SELECT wrong"},
		"q2": {"SELECT wrong", "SELECT wrong", "SELECT right"},
	}}
	exec := &scriptedExecutor{tables: map[string]*domain.ResultTable{
		"SELECT right": answerTable,
		"SELECT wrong": {Columns: []string{"n"}, Rows: [][]any{{99}}},
	}}
	sink := &captureSink{}
	r := testRunner(t, producer, exec, ensemble.StrategyFrequency, 0, sink)

	questions := []domain.Question{
		{ID: "q1", Text: "first", GroundTruth: answerTable},
		{ID: "q2", Text: "second", GroundTruth: answerTable},
	}

	result, err := r.Run(context.Background(), questions, attemptsConfig(3))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Summary.TotalQuestions)
	assert.Equal(t, 1, result.Summary.Hits.Exact, "majority picks right for q1, wrong for q2")
	assert.Equal(t, 2, result.Summary.UpperBoundHits.Exact, "an oracle scores both")

	require.Len(t, result.Records, 2)
	assert.Equal(t, "q1", result.Records[0].QuestionID)
	assert.Equal(t, domain.OutcomeStatusHit, result.Records[0].Status)
	assert.Equal(t, domain.OutcomeStatusMiss, result.Records[1].Status)

	envs := sink.all()
	require.Len(t, envs, 2)
	for _, env := range envs {
		assert.Equal(t, "runner.question_scored", env.Type)
		assert.Equal(t, "run-test", env.RunID)
	}
}

// TestRunner_CorrectionLoop verifies a query-erroring selection is
// retired and re-selected until the budget runs out or a candidate
// executes, and that the recorded correction count is exact.
func TestRunner_CorrectionLoop(t *testing.T) {
	// Majority picks the broken code twice before reaching the good one.
	producer := &scriptedProducer{codes: map[string][]string{
		"q1": {"SELECT broken", "SELECT broken", "SELECT right"},
	}}
	exec := &scriptedExecutor{tables: map[string]*domain.ResultTable{
		"SELECT right": answerTable,
	}}
	r := testRunner(t, producer, exec, ensemble.StrategyFrequency, 2, nil)

	questions := []domain.Question{{ID: "q1", Text: "first", GroundTruth: answerTable}}
	result, err := r.Run(context.Background(), questions, attemptsConfig(3))
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, domain.OutcomeStatusHit, rec.Status)
	assert.Equal(t, 2, rec.Corrections)
	assert.Equal(t, "SELECT right", rec.SelectedCode)
}

// TestRunner_CorrectionBudgetExhausted verifies the outcome stays a
// query error when every re-selection also fails execution.
func TestRunner_CorrectionBudgetExhausted(t *testing.T) {
	producer := &scriptedProducer{codes: map[string][]string{
		"q1": {"SELECT broken", "SELECT broken", "SELECT broken"},
	}}
	exec := &scriptedExecutor{tables: map[string]*domain.ResultTable{}}
	r := testRunner(t, producer, exec, ensemble.StrategyFrequency, 1, nil)

	questions := []domain.Question{{ID: "q1", Text: "first", GroundTruth: answerTable}}
	result, err := r.Run(context.Background(), questions, attemptsConfig(3))
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, domain.OutcomeStatusQueryError, rec.Status)
	assert.Equal(t, 1, rec.Corrections)
	assert.Equal(t, 1, result.Summary.QueryErrors)
}

// TestRunner_NoEligibleCandidates verifies a question whose every
// attempt failed generation still reaches the summary as a miss.
func TestRunner_NoEligibleCandidates(t *testing.T) {
	producer := &scriptedProducer{codes: map[string][]string{}}
	r := testRunner(t, producer, &scriptedExecutor{}, ensemble.StrategyFrequency, 0, nil)

	questions := []domain.Question{{ID: "q1", Text: "first", GroundTruth: answerTable}}
	result, err := r.Run(context.Background(), questions, attemptsConfig(2))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.TotalQuestions)
	assert.Equal(t, 1, result.Summary.NoAnswer)
	require.Len(t, result.Records, 1)
	assert.Equal(t, domain.OutcomeStatusMiss, result.Records[0].Status)
	assert.Contains(t, result.Records[0].ErrorDetail, "no eligible candidates")
}

func TestRunner_InvalidInputs(t *testing.T) {
	r := testRunner(t, &scriptedProducer{}, &scriptedExecutor{}, ensemble.StrategyFrequency, 0, nil)

	_, err := r.Run(context.Background(), []domain.Question{{ID: "q1"}}, attemptsConfig(1))
	assert.Error(t, err, "question without text must be rejected")

	questions := []domain.Question{{ID: "q1", Text: "first"}}
	_, err = r.Run(context.Background(), questions, []domain.Configuration{{Provider: "google"}})
	assert.Error(t, err, "configuration without model must be rejected")
}
