package domain

import "time"

// OutcomeStatus is the coarse classification of a question's final result.
type OutcomeStatus string

const (
	// OutcomeStatusHit indicates the selected candidate matched ground
	// truth under at least one equivalence rule.
	OutcomeStatusHit OutcomeStatus = "hit"

	// OutcomeStatusMiss indicates the selected candidate executed but
	// matched under no rule, or no candidate was eligible for selection.
	OutcomeStatusMiss OutcomeStatus = "miss"

	// OutcomeStatusQueryError indicates the selected code executed but
	// failed against the target dataset. Wrong-but-executable is recorded
	// distinctly from a miss to allow separate diagnosis.
	OutcomeStatusQueryError OutcomeStatus = "query_error"

	// OutcomeStatusTimeout indicates generation or execution exceeded its
	// wall-clock budget.
	OutcomeStatusTimeout OutcomeStatus = "timeout"
)

// IsValidOutcomeStatus reports whether s is one of the defined statuses.
func IsValidOutcomeStatus(s OutcomeStatus) bool {
	switch s {
	case OutcomeStatusHit, OutcomeStatusMiss, OutcomeStatusQueryError, OutcomeStatusTimeout:
		return true
	default:
		return false
	}
}

// ComparisonVerdict records three independent booleans, one per
// equivalence rule, from strictest to most permissive.
type ComparisonVerdict struct {
	// Exact is row-for-row and column-for-column equality including
	// column order and name.
	Exact bool `json:"exact"`

	// ColumnOrderAgnostic is equality under some permutation of result
	// columns, after canonical column ordering is applied to both sides.
	ColumnOrderAgnostic bool `json:"column_order_agnostic"`

	// Flexible accepts documented acceptable variations: numeric
	// tolerance, case-insensitive strings, nil as zero value.
	Flexible bool `json:"flexible"`
}

// Any reports whether at least one rule matched.
func (v ComparisonVerdict) Any() bool { return v.Exact || v.ColumnOrderAgnostic || v.Flexible }

// Or returns the rule-wise disjunction of two verdicts. Used when
// folding upper-bound verdicts across a candidate set.
func (v ComparisonVerdict) Or(o ComparisonVerdict) ComparisonVerdict {
	return ComparisonVerdict{
		Exact:               v.Exact || o.Exact,
		ColumnOrderAgnostic: v.ColumnOrderAgnostic || o.ColumnOrderAgnostic,
		Flexible:            v.Flexible || o.Flexible,
	}
}

// Outcome is the per-question result, produced exactly once per question
// per run and immutable once recorded.
type Outcome struct {
	// QuestionID identifies the scored question.
	QuestionID string `json:"question_id" validate:"required"`

	// Status is the coarse result tag.
	Status OutcomeStatus `json:"status" validate:"required"`

	// Verdict holds the per-rule comparison booleans for the selection.
	// Zero-valued for query-error, timeout, and no-answer outcomes.
	Verdict ComparisonVerdict `json:"verdict"`

	// Selection is the candidate the ensemble chose, retained for the
	// per-question detail record.
	Selection Selection `json:"selection"`

	// Elapsed is the wall-clock time of generation plus execution.
	Elapsed time.Duration `json:"elapsed"`

	// Corrections is how many times the correction loop retired a
	// candidate after a query error before this outcome was recorded.
	Corrections int `json:"corrections,omitempty"`

	// ErrorDetail retains the failure reason for non-hit outcomes.
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Validate checks that the outcome meets its contract requirements.
func (o *Outcome) Validate() error {
	if err := validate.Struct(o); err != nil {
		return err
	}
	if !IsValidOutcomeStatus(o.Status) {
		return ErrInvalidOutcomeStatus
	}
	return nil
}

// RuleHits holds one counter per equivalence rule.
type RuleHits struct {
	Exact               int `json:"exact"`
	ColumnOrderAgnostic int `json:"column_order_agnostic"`
	Flexible            int `json:"flexible"`
}

// AddVerdict increments each counter whose rule matched.
func (r *RuleHits) AddVerdict(v ComparisonVerdict) {
	if v.Exact {
		r.Exact++
	}
	if v.ColumnOrderAgnostic {
		r.ColumnOrderAgnostic++
	}
	if v.Flexible {
		r.Flexible++
	}
}

// RunSummary is the aggregate view over all outcomes of a run. It is
// derived data: recomputable at any time from the outcome set and never
// independently mutated.
type RunSummary struct {
	// TotalQuestions is the number of questions scored.
	TotalQuestions int `json:"total_questions"`

	// Hits counts questions whose selection matched, per rule.
	Hits RuleHits `json:"hits"`

	// UpperBoundHits counts questions where any ok candidate matched,
	// per rule. Invariant: UpperBoundHits >= Hits rule-wise.
	UpperBoundHits RuleHits `json:"upper_bound_hits"`

	// Timeouts counts questions whose outcome was a timeout.
	Timeouts int `json:"timeouts"`

	// QueryErrors counts questions whose outcome was a query error.
	QueryErrors int `json:"query_errors"`

	// NoAnswer counts questions with zero ok candidates.
	NoAnswer int `json:"no_answer"`
}

// AccuracyPercent returns actual accuracy percentages per rule.
func (s *RunSummary) AccuracyPercent() map[string]float64 {
	return percentages(s.Hits, s.TotalQuestions)
}

// UpperBoundPercent returns upper-bound accuracy percentages per rule.
func (s *RunSummary) UpperBoundPercent() map[string]float64 {
	return percentages(s.UpperBoundHits, s.TotalQuestions)
}

func percentages(hits RuleHits, total int) map[string]float64 {
	if total == 0 {
		return map[string]float64{"exact": 0, "column_order_agnostic": 0, "flexible": 0}
	}
	pct := func(n int) float64 { return float64(n) / float64(total) * 100 }
	return map[string]float64{
		"exact":                 pct(hits.Exact),
		"column_order_agnostic": pct(hits.ColumnOrderAgnostic),
		"flexible":              pct(hits.Flexible),
	}
}
