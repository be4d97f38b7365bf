package runner

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ahrav/go-quorum/internal/aggregation"
)

// WriteArtifacts writes the run's output files to dir: summary.json with
// run-level counters and accuracy percentages, and records.csv with one
// detail row per question.
func WriteArtifacts(dir string, result *Result) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	if err := writeSummaryJSON(filepath.Join(dir, "summary.json"), result); err != nil {
		return err
	}
	return writeRecordsCSV(filepath.Join(dir, "records.csv"), result.Records)
}

func writeSummaryJSON(path string, result *Result) error {
	s := result.Summary
	payload := struct {
		TotalQuestions int                `json:"total_questions"`
		Hits           map[string]int     `json:"hits"`
		UpperBoundHits map[string]int     `json:"upper_bound_hits"`
		AccuracyPct    map[string]float64 `json:"accuracy_pct"`
		UpperBoundPct  map[string]float64 `json:"upper_bound_pct"`
		Timeouts       int                `json:"timeouts"`
		QueryErrors    int                `json:"query_errors"`
		NoAnswer       int                `json:"no_answer"`
	}{
		TotalQuestions: s.TotalQuestions,
		Hits: map[string]int{
			"exact":                 s.Hits.Exact,
			"column_order_agnostic": s.Hits.ColumnOrderAgnostic,
			"flexible":              s.Hits.Flexible,
		},
		UpperBoundHits: map[string]int{
			"exact":                 s.UpperBoundHits.Exact,
			"column_order_agnostic": s.UpperBoundHits.ColumnOrderAgnostic,
			"flexible":              s.UpperBoundHits.Flexible,
		},
		AccuracyPct:   s.AccuracyPercent(),
		UpperBoundPct: s.UpperBoundPercent(),
		Timeouts:      s.Timeouts,
		QueryErrors:   s.QueryErrors,
		NoAnswer:      s.NoAnswer,
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func writeRecordsCSV(path string, records []aggregation.QuestionRecord) error {
	f, err := os.Create(path) // #nosec G304 -- results path is operator-supplied
	if err != nil {
		return fmt.Errorf("create records csv: %w", err)
	}
	defer f.Close() //nolint:errcheck // flushed and error-checked via the writer

	w := csv.NewWriter(f)
	header := []string{
		"question_id", "question_text", "strategy", "status",
		"exact", "column_order_agnostic", "flexible",
		"ub_exact", "ub_column_order_agnostic", "ub_flexible",
		"candidates", "ok_candidates", "corrections", "elapsed_ms",
		"selected_code", "error_detail",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.QuestionID,
			rec.QuestionText,
			rec.Strategy,
			string(rec.Status),
			strconv.FormatBool(rec.Verdict.Exact),
			strconv.FormatBool(rec.Verdict.ColumnOrderAgnostic),
			strconv.FormatBool(rec.Verdict.Flexible),
			strconv.FormatBool(rec.UpperBound.Exact),
			strconv.FormatBool(rec.UpperBound.ColumnOrderAgnostic),
			strconv.FormatBool(rec.UpperBound.Flexible),
			strconv.Itoa(rec.Candidates),
			strconv.Itoa(rec.OKCandidates),
			strconv.Itoa(rec.Corrections),
			strconv.FormatInt(rec.Elapsed.Milliseconds(), 10),
			rec.SelectedCode,
			rec.ErrorDetail,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush records csv: %w", err)
	}
	return nil
}
