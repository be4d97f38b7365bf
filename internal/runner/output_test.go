package runner //nolint:testpackage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/aggregation"
	"github.com/ahrav/go-quorum/internal/domain"
)

func TestWriteArtifacts(t *testing.T) {
	result := &Result{
		Summary: domain.RunSummary{
			TotalQuestions: 2,
			Hits:           domain.RuleHits{Exact: 1, ColumnOrderAgnostic: 1, Flexible: 1},
			UpperBoundHits: domain.RuleHits{Exact: 2, ColumnOrderAgnostic: 2, Flexible: 2},
			QueryErrors:    1,
		},
		Records: []aggregation.QuestionRecord{
			{
				QuestionID:   "q1",
				QuestionText: "first",
				Strategy:     "frequency",
				SelectedCode: "SELECT 1",
				Status:       domain.OutcomeStatusHit,
				Verdict:      domain.ComparisonVerdict{Exact: true, ColumnOrderAgnostic: true, Flexible: true},
				UpperBound:   domain.ComparisonVerdict{Exact: true, ColumnOrderAgnostic: true, Flexible: true},
				Candidates:   3,
				OKCandidates: 3,
				Elapsed:      1500 * time.Millisecond,
			},
			{
				QuestionID:   "q2",
				QuestionText: "second",
				Strategy:     "frequency",
				Status:       domain.OutcomeStatusQueryError,
				Candidates:   3,
				OKCandidates: 2,
				Corrections:  1,
				ErrorDetail:  "no such column",
			},
		},
	}

	dir := filepath.Join(t.TempDir(), "results")
	require.NoError(t, WriteArtifacts(dir, result))

	raw, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)

	var summary struct {
		TotalQuestions int                `json:"total_questions"`
		Hits           map[string]int     `json:"hits"`
		AccuracyPct    map[string]float64 `json:"accuracy_pct"`
		UpperBoundPct  map[string]float64 `json:"upper_bound_pct"`
		QueryErrors    int                `json:"query_errors"`
	}
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, 2, summary.TotalQuestions)
	assert.Equal(t, 1, summary.Hits["exact"])
	assert.InDelta(t, 50.0, summary.AccuracyPct["exact"], 1e-9)
	assert.InDelta(t, 100.0, summary.UpperBoundPct["flexible"], 1e-9)
	assert.Equal(t, 1, summary.QueryErrors)

	f, err := os.Open(filepath.Join(dir, "records.csv"))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per question")

	assert.Equal(t, "question_id", rows[0][0])
	assert.Equal(t, "q1", rows[1][0])
	assert.Equal(t, "hit", rows[1][3])
	assert.Equal(t, "true", rows[1][4])
	assert.Equal(t, "1500", rows[1][13])
	assert.Equal(t, "q2", rows[2][0])
	assert.Equal(t, "query_error", rows[2][3])
	assert.Equal(t, "1", rows[2][12])
	assert.Equal(t, "no such column", rows[2][15])
}

func TestWriteArtifacts_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	require.NoError(t, WriteArtifacts(dir, &Result{}))

	_, err := os.Stat(filepath.Join(dir, "summary.json"))
	assert.NoError(t, err)
}
