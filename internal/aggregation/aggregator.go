// Package aggregation folds per-question outcomes into detail records
// and a run-level summary. The aggregator is a pure reducer: feeding it
// the same outcome and upper-bound data again yields identical records
// and summaries, and the summary is recomputed from the record set on
// every request rather than independently mutated.
package aggregation

import (
	"sort"
	"sync"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
)

// QuestionRecord is the per-question detail row of a run's output:
// question data, the chosen code, the per-rule match booleans, and the
// retained failure reason when the question missed.
type QuestionRecord struct {
	QuestionID   string                   `json:"question_id"`
	QuestionText string                   `json:"question_text"`
	Strategy     string                   `json:"strategy"`
	SelectedCode string                   `json:"selected_code,omitempty"`
	Explanation  string                   `json:"explanation,omitempty"`
	Status       domain.OutcomeStatus     `json:"status"`
	Verdict      domain.ComparisonVerdict `json:"verdict"`
	UpperBound   domain.ComparisonVerdict `json:"upper_bound"`
	Candidates   int                      `json:"candidates"`
	OKCandidates int                      `json:"ok_candidates"`
	Corrections  int                      `json:"corrections,omitempty"`
	Elapsed      time.Duration            `json:"elapsed"`
	ErrorDetail  string                   `json:"error_detail,omitempty"`
}

// Aggregator accumulates outcomes. Safe for concurrent Record calls;
// in practice the runner records sequentially behind the join barrier.
type Aggregator struct {
	mu      sync.Mutex
	records map[string]QuestionRecord
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{records: make(map[string]QuestionRecord)}
}

// Record folds one question's outcome, candidate set, and upper-bound
// verdict into the record set. Recording the same question twice
// overwrites with identical data, keeping the reducer idempotent; an
// outcome is produced exactly once per question per run upstream.
func (a *Aggregator) Record(q domain.Question, set domain.CandidateSet, outcome domain.Outcome, upperBound domain.ComparisonVerdict) {
	rec := QuestionRecord{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		Strategy:     outcome.Selection.Strategy,
		Status:       outcome.Status,
		Verdict:      outcome.Verdict,
		UpperBound:   upperBound,
		Candidates:   set.Len(),
		OKCandidates: len(set.Valid()),
		Corrections:  outcome.Corrections,
		Elapsed:      outcome.Elapsed,
		ErrorDetail:  outcome.ErrorDetail,
	}
	if outcome.Selection.Candidate != nil {
		rec.SelectedCode = outcome.Selection.Candidate.Code
		rec.Explanation = outcome.Selection.Candidate.Explanation
	}

	a.mu.Lock()
	a.records[q.ID] = rec
	a.mu.Unlock()
}

// Records returns the detail records ordered by question ID.
func (a *Aggregator) Records() []QuestionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]QuestionRecord, 0, len(a.records))
	for _, rec := range a.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// Summary recomputes the run summary from the record set. The upper
// bound dominates actual hits rule-wise by construction: a selection
// verdict is always folded into the upper bound before recording.
func (a *Aggregator) Summary() domain.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	var s domain.RunSummary
	s.TotalQuestions = len(a.records)
	for _, rec := range a.records {
		s.Hits.AddVerdict(rec.Verdict)
		// Guard the invariant even if a caller supplied an upper bound
		// computed without the selection's own verdict.
		s.UpperBoundHits.AddVerdict(rec.UpperBound.Or(rec.Verdict))

		switch rec.Status {
		case domain.OutcomeStatusTimeout:
			s.Timeouts++
		case domain.OutcomeStatusQueryError:
			s.QueryErrors++
		}
		if rec.OKCandidates == 0 {
			s.NoAnswer++
		}
	}
	return s
}
