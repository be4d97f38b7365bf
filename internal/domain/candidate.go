package domain

import "sort"

// CandidateStatus classifies the terminal state of one generation attempt.
// Using typed constants instead of raw strings provides compile-time safety
// and prevents typos that could bypass selector eligibility filtering.
type CandidateStatus string

const (
	// CandidateStatusOK represents a successfully generated candidate.
	CandidateStatusOK CandidateStatus = "ok"

	// CandidateStatusGenerationError represents a terminal generation
	// failure: retry budget exhausted or malformed provider output.
	CandidateStatusGenerationError CandidateStatus = "generation_error"

	// CandidateStatusTimeout represents a work unit abandoned at its
	// wall-clock deadline. Recorded distinctly from generation errors so
	// run summaries separate provider faults from scheduling faults.
	CandidateStatusTimeout CandidateStatus = "timeout"

	// CandidateStatusEmpty represents a provider response that parsed but
	// contained no code.
	CandidateStatusEmpty CandidateStatus = "empty"
)

// IsValidCandidateStatus reports whether s is one of the defined statuses.
func IsValidCandidateStatus(s CandidateStatus) bool {
	switch s {
	case CandidateStatusOK, CandidateStatusGenerationError, CandidateStatusTimeout, CandidateStatusEmpty:
		return true
	default:
		return false
	}
}

// UsageMetadata records provider-reported token consumption and cost for
// one generation call. All fields are optional; providers vary in what
// they report.
type UsageMetadata struct {
	PromptTokens     int64   `json:"prompt_tokens,omitempty"`
	CompletionTokens int64   `json:"completion_tokens,omitempty"`
	TotalTokens      int64   `json:"total_tokens,omitempty"`
	CostCents        float64 `json:"cost_cents,omitempty"`
}

// Candidate is the unit produced by one generation attempt. It is owned
// exclusively by the fingerprint that produced it: written once, read
// many times, never mutated. Re-generation produces a new Candidate for a
// new attempt index, not an overwrite.
type Candidate struct {
	// QuestionID identifies the question this candidate answers.
	QuestionID string `json:"question_id" validate:"required"`

	// ConfigIndex is the position of the producing configuration within
	// the run's configuration set. Together with Attempt it defines the
	// stable enumeration order selectors use for tie-breaking.
	ConfigIndex int `json:"config_index" validate:"min=0"`

	// Attempt is the attempt index within the producing configuration.
	Attempt int `json:"attempt" validate:"min=0"`

	// Fingerprint is the cache key this candidate was produced under.
	Fingerprint Fingerprint `json:"fingerprint"`

	// Code is the generated query text.
	Code string `json:"code"`

	// Explanation is the provider's natural-language rationale, if any.
	Explanation string `json:"explanation,omitempty"`

	// RawResponse is the unparsed provider response text.
	RawResponse string `json:"raw_response,omitempty"`

	// Usage carries provider-reported token/cost metadata, if any.
	Usage *UsageMetadata `json:"usage,omitempty"`

	// Status is the terminal state of the attempt.
	Status CandidateStatus `json:"status" validate:"required"`

	// ErrorDetail retains the failure reason for non-ok candidates.
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Validate checks that the candidate meets its contract requirements.
func (c *Candidate) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !IsValidCandidateStatus(c.Status) {
		return ErrInvalidCandidateStatus
	}
	return nil
}

// OK reports whether the candidate is eligible for ensemble selection.
func (c *Candidate) OK() bool { return c.Status == CandidateStatusOK }

// CandidateSet is every candidate collected for one question across all
// configurations of a run. Insertion order is irrelevant; each candidate
// retains its (ConfigIndex, Attempt) origin, which defines the stable
// enumeration order required by frequency and heuristic selectors.
type CandidateSet struct {
	QuestionID string      `json:"question_id"`
	Candidates []Candidate `json:"candidates"`
}

// Add appends a candidate to the set.
func (s *CandidateSet) Add(c Candidate) { s.Candidates = append(s.Candidates, c) }

// Len returns the total number of candidates, eligible or not.
func (s *CandidateSet) Len() int { return len(s.Candidates) }

// Valid returns the ok candidates sorted into the stable enumeration
// order (ConfigIndex, then Attempt). Selectors operate on this slice so
// index 0 is always the deterministic tie-break winner.
func (s *CandidateSet) Valid() []Candidate {
	valid := make([]Candidate, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		if c.OK() {
			valid = append(valid, c)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].ConfigIndex != valid[j].ConfigIndex {
			return valid[i].ConfigIndex < valid[j].ConfigIndex
		}
		return valid[i].Attempt < valid[j].Attempt
	})
	return valid
}

// Invalid returns the candidates excluded from selection, in insertion order.
func (s *CandidateSet) Invalid() []Candidate {
	invalid := make([]Candidate, 0)
	for _, c := range s.Candidates {
		if !c.OK() {
			invalid = append(invalid, c)
		}
	}
	return invalid
}

// Without returns a copy of the set with one candidate removed, identified
// by its (ConfigIndex, Attempt) origin. Used by the correction loop to
// retire a candidate whose code failed execution.
func (s *CandidateSet) Without(configIndex, attempt int) CandidateSet {
	out := CandidateSet{QuestionID: s.QuestionID}
	for _, c := range s.Candidates {
		if c.ConfigIndex == configIndex && c.Attempt == attempt {
			continue
		}
		out.Candidates = append(out.Candidates, c)
	}
	return out
}

// Selection is the single candidate chosen by an ensemble selector for a
// question, plus the strategy that chose it and any tie-break metadata.
type Selection struct {
	// Candidate is the chosen candidate. Nil when NoAnswer is true.
	Candidate *Candidate `json:"candidate,omitempty"`

	// Strategy names the selector that produced this selection.
	Strategy string `json:"strategy"`

	// TieBreak describes how a tie was resolved, empty when no tie occurred.
	TieBreak string `json:"tie_break,omitempty"`

	// NoAnswer is the designated sentinel for a question with zero ok
	// candidates. Such questions are always scored as misses with no
	// comparator invocation.
	NoAnswer bool `json:"no_answer"`
}
