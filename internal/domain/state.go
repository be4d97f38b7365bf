package domain

// LifecycleState is one stage of a question's path through a run.
// The state machine replaces the recursive regenerate-on-error loop with
// an explicit, bounded progression.
type LifecycleState string

const (
	// StatePending is the initial state: work units not yet enumerated.
	StatePending LifecycleState = "pending"

	// StateGenerating means work units are in flight in the worker pool.
	StateGenerating LifecycleState = "generating"

	// StateSelecting means the join barrier released and the ensemble
	// selector is choosing a candidate.
	StateSelecting LifecycleState = "selecting"

	// StateEvaluating means the selection is executing and being compared.
	StateEvaluating LifecycleState = "evaluating"

	// StateCorrected means a query error retired the selection and the
	// question returned to selection with a decremented correction budget.
	StateCorrected LifecycleState = "corrected"

	// StateTerminal means the outcome is recorded; no further transitions.
	StateTerminal LifecycleState = "terminal"
)

// lifecycleTransitions is the closed set of permitted state changes.
var lifecycleTransitions = map[LifecycleState][]LifecycleState{
	StatePending:    {StateGenerating},
	StateGenerating: {StateSelecting},
	StateSelecting:  {StateEvaluating, StateTerminal},
	StateEvaluating: {StateCorrected, StateTerminal},
	StateCorrected:  {StateSelecting},
	StateTerminal:   {},
}

// Lifecycle tracks one question's progression through generation,
// selection, evaluation, and the bounded correction loop. It is not
// safe for concurrent use; each question is driven by one goroutine
// after the join barrier.
type Lifecycle struct {
	questionID  string
	state       LifecycleState
	corrections int
	budget      int
}

// NewLifecycle creates a lifecycle in StatePending with the given
// correction budget. A budget of zero disables the correction loop.
func NewLifecycle(questionID string, correctionBudget int) *Lifecycle {
	return &Lifecycle{
		questionID: questionID,
		state:      StatePending,
		budget:     correctionBudget,
	}
}

// State returns the current state.
func (l *Lifecycle) State() LifecycleState { return l.state }

// Corrections returns how many corrections have been consumed.
func (l *Lifecycle) Corrections() int { return l.corrections }

// Transition moves the lifecycle to next, rejecting moves the transition
// table does not permit.
func (l *Lifecycle) Transition(next LifecycleState) error {
	for _, allowed := range lifecycleTransitions[l.state] {
		if allowed == next {
			l.state = next
			return nil
		}
	}
	return ErrInvalidTransition
}

// Correct consumes one correction and moves StateEvaluating ->
// StateCorrected. Returns ErrCorrectionBudgetExhausted when the budget
// is spent, leaving the state untouched so the caller records a terminal
// query-error outcome instead.
func (l *Lifecycle) Correct() error {
	if l.corrections >= l.budget {
		return ErrCorrectionBudgetExhausted
	}
	if err := l.Transition(StateCorrected); err != nil {
		return err
	}
	l.corrections++
	return nil
}
