// Package evaluation executes selected candidates via the external
// Executor and scores the materialized tables against ground truth under
// three equivalence rules of increasing permissiveness: exact,
// column-order-agnostic, and flexible.
package evaluation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ahrav/go-quorum/internal/domain"
)

// numericTolerance is the absolute tolerance the flexible rule accepts
// between numeric cells.
const numericTolerance = 1e-3

// Compare evaluates every equivalence rule independently and returns the
// per-rule verdict. Both tables are treated as immutable; normalization
// happens on copies.
func Compare(gold, gen *domain.ResultTable) domain.ComparisonVerdict {
	if gold == nil || gen == nil {
		return domain.ComparisonVerdict{}
	}
	return domain.ComparisonVerdict{
		Exact:               Exact(gold, gen),
		ColumnOrderAgnostic: ColumnOrderAgnostic(gold, gen),
		Flexible:            Flexible(gold, gen),
	}
}

// Exact is the strictest rule: row-for-row and column-for-column
// equality including column order and name. Numeric cells are unified
// across int/float representations but otherwise must match exactly.
func Exact(a, b *domain.ResultTable) bool {
	if a.NumCols() != b.NumCols() || a.NumRows() != b.NumRows() {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	for i := range a.Rows {
		for j := range a.Rows[i] {
			if strictKey(a.Rows[i][j]) != strictKey(b.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// ColumnOrderAgnostic reports equality under some permutation of result
// columns. Both sides are row-deduplicated, columns are matched by value
// multiset ignoring names, and after applying the permutation the row
// sets must coincide. The relation is symmetric: matching is driven by
// exact multiset equality, which partitions columns into equivalence
// classes identically from either side.
func ColumnOrderAgnostic(a, b *domain.ResultTable) bool {
	// Fast path: identical row sets in the current column order.
	if a.NumCols() == b.NumCols() && rowSetEqual(a, b) {
		return true
	}

	da, db := dedupRows(a), dedupRows(b)
	if da.NumRows() != db.NumRows() || da.NumCols() != db.NumCols() {
		return false
	}

	perm := matchColumns(da, db, strictKey)
	if perm == nil {
		return false
	}
	return rowSetEqual(permuteColumns(da, perm), db)
}

// Flexible is the most permissive rule. Both sides are normalized (row
// dedup, canonical column order by name, nil as zero, rows sorted) and
// compared with numeric tolerance and case-insensitive strings; when
// column names do not line up, a greedy content match over column value
// multisets decides instead.
func Flexible(a, b *domain.ResultTable) bool {
	if a.Empty() && b.Empty() {
		return true
	}
	if a.Empty() || b.Empty() {
		return false
	}

	na, nb := normalizeFlexible(a), normalizeFlexible(b)
	if flexAligned(na, nb) {
		return true
	}

	// Names disagree: fall back to content matching. Every column of the
	// gold side must find a distinct counterpart on the generated side;
	// the generated side may carry extra columns.
	if na.NumRows() != nb.NumRows() || na.NumCols() > nb.NumCols() {
		return false
	}
	return matchColumnsSubset(na, nb, lenientKey)
}

// strictKey renders a cell for exact comparison: numeric kinds unify to
// a canonical float form, everything else keeps its type and case.
func strictKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00nil"
	case bool:
		return "b:" + strconv.FormatBool(x)
	case string:
		return "s:" + x
	default:
		if f, ok := toFloat(v); ok {
			return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "?:" + stringify(v)
	}
}

// lenientKey renders a cell for flexible comparison: numbers round to
// the tolerance's precision, numeric strings become numbers, strings
// lose case and surrounding space, and nil collapses to numeric zero.
func lenientKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "n:0"
	case bool:
		return "b:" + strconv.FormatBool(x)
	case string:
		trimmed := strings.TrimSpace(x)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return "n:" + strconv.FormatFloat(roundTol(f), 'g', -1, 64)
		}
		return "s:" + strings.ToLower(trimmed)
	default:
		if f, ok := toFloat(v); ok {
			return "n:" + strconv.FormatFloat(roundTol(f), 'g', -1, 64)
		}
		return "?:" + stringify(v)
	}
}

// roundTol rounds to three decimals, the flexible rule's tolerance.
func roundTol(f float64) float64 { return math.Round(f*1000) / 1000 }

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	return fmt.Sprintf("%v", v)
}

// rowKey joins a row's cell keys into one comparable string.
func rowKey(row []any, key func(any) string) string {
	parts := make([]string, len(row))
	for i, cell := range row {
		parts[i] = key(cell)
	}
	return strings.Join(parts, "\x1f")
}

// rowSetEqual compares the sets of row tuples of two tables, ignoring
// row order and multiplicity (set semantics, as duplicates are
// deduplicated by the callers that need it).
func rowSetEqual(a, b *domain.ResultTable) bool {
	setA := make(map[string]struct{}, len(a.Rows))
	for _, row := range a.Rows {
		setA[rowKey(row, strictKey)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b.Rows))
	for _, row := range b.Rows {
		setB[rowKey(row, strictKey)] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for k := range setA {
		if _, ok := setB[k]; !ok {
			return false
		}
	}
	return true
}

// dedupRows returns a copy of t with duplicate rows removed, preserving
// first-occurrence order.
func dedupRows(t *domain.ResultTable) *domain.ResultTable {
	out := &domain.ResultTable{Columns: append([]string(nil), t.Columns...)}
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		k := rowKey(row, strictKey)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, append([]any(nil), row...))
	}
	return out
}

// columnSignature is the multiset of cell keys in one column.
func columnSignature(t *domain.ResultTable, col int, key func(any) string) map[string]int {
	sig := make(map[string]int, len(t.Rows))
	for _, row := range t.Rows {
		sig[key(row[col])]++
	}
	return sig
}

func signaturesEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, n := range a {
		if b[k] != n {
			return false
		}
	}
	return true
}

// matchColumns greedily pairs every column of a with a distinct column
// of b by value multiset. Returns perm where perm[i] is the column of b
// matched to column i of a, or nil when some column finds no match.
func matchColumns(a, b *domain.ResultTable, key func(any) string) []int {
	used := make([]bool, b.NumCols())
	perm := make([]int, a.NumCols())
	for i := 0; i < a.NumCols(); i++ {
		sigA := columnSignature(a, i, key)
		matched := -1
		for j := 0; j < b.NumCols(); j++ {
			if used[j] {
				continue
			}
			if signaturesEqual(sigA, columnSignature(b, j, key)) {
				matched = j
				break
			}
		}
		if matched == -1 {
			return nil
		}
		used[matched] = true
		perm[i] = matched
	}
	return perm
}

// matchColumnsSubset reports whether every column of a pairs with a
// distinct column of b; b may have columns left over.
func matchColumnsSubset(a, b *domain.ResultTable, key func(any) string) bool {
	return matchColumns(a, b, key) != nil
}

// permuteColumns reorders a's columns so column i holds what was at
// perm[i], aligning a with the table perm was computed against.
func permuteColumns(a *domain.ResultTable, perm []int) *domain.ResultTable {
	inverse := make([]int, len(perm))
	for i, j := range perm {
		inverse[j] = i
	}
	out := &domain.ResultTable{
		Columns: make([]string, len(a.Columns)),
		Rows:    make([][]any, len(a.Rows)),
	}
	for j := range out.Columns {
		out.Columns[j] = a.Columns[inverse[j]]
	}
	for r, row := range a.Rows {
		newRow := make([]any, len(row))
		for j := range newRow {
			newRow[j] = row[inverse[j]]
		}
		out.Rows[r] = newRow
	}
	return out
}

// normalizeFlexible prepares a table for the flexible rule: rows
// deduplicated, columns reordered alphabetically by name, nil cells
// replaced with zero, rows sorted by their lenient keys.
func normalizeFlexible(t *domain.ResultTable) *domain.ResultTable {
	out := dedupRows(t)

	// Canonical column order: alphabetical by name, original index as
	// the stable tie-break for duplicate names.
	idx := make([]int, len(out.Columns))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return strings.ToLower(out.Columns[idx[i]]) < strings.ToLower(out.Columns[idx[j]])
	})

	reordered := &domain.ResultTable{
		Columns: make([]string, len(out.Columns)),
		Rows:    make([][]any, len(out.Rows)),
	}
	for pos, orig := range idx {
		reordered.Columns[pos] = out.Columns[orig]
	}
	for r, row := range out.Rows {
		newRow := make([]any, len(row))
		for pos, orig := range idx {
			cell := row[orig]
			if cell == nil {
				cell = float64(0)
			}
			newRow[pos] = cell
		}
		reordered.Rows[r] = newRow
	}

	sort.SliceStable(reordered.Rows, func(i, j int) bool {
		return rowKey(reordered.Rows[i], lenientKey) < rowKey(reordered.Rows[j], lenientKey)
	})
	return reordered
}

// flexAligned compares two normalized tables positionally with lenient
// cell equality, requiring column names to agree case-insensitively.
func flexAligned(a, b *domain.ResultTable) bool {
	if a.NumCols() != b.NumCols() || a.NumRows() != b.NumRows() {
		return false
	}
	for i := range a.Columns {
		if !strings.EqualFold(a.Columns[i], b.Columns[i]) {
			return false
		}
	}
	for i := range a.Rows {
		for j := range a.Rows[i] {
			if !lenientCellEqual(a.Rows[i][j], b.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// lenientCellEqual accepts numeric differences inside the tolerance and
// case-insensitive string equality; numeric strings compare as numbers.
func lenientCellEqual(a, b any) bool {
	fa, aNum := flexFloat(a)
	fb, bNum := flexFloat(b)
	if aNum && bNum {
		return math.Abs(fa-fb) < numericTolerance
	}
	return lenientKey(a) == lenientKey(b)
}

// flexFloat extracts a numeric value under flexible semantics: nil is
// zero and numeric strings parse.
func flexFloat(v any) (float64, bool) {
	if v == nil {
		return 0, true
	}
	if f, ok := toFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
