package domain

// ResultTable is the materialized output of executing a query: named
// columns and rows of loosely typed cells. Cells hold string, float64,
// int64, bool, or nil; the comparator normalizes across numeric kinds.
type ResultTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NumRows returns the row count.
func (t *ResultTable) NumRows() int { return len(t.Rows) }

// NumCols returns the column count.
func (t *ResultTable) NumCols() int { return len(t.Columns) }

// Empty reports whether the table has no rows.
func (t *ResultTable) Empty() bool { return len(t.Rows) == 0 }

// Size returns the total cell count, the size proxy used by selectors.
func (t *ResultTable) Size() int { return len(t.Rows) * len(t.Columns) }

// Clone returns a deep copy. Comparison rules normalize tables in place
// on copies so the originals stay immutable.
func (t *ResultTable) Clone() *ResultTable {
	if t == nil {
		return nil
	}
	out := &ResultTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}
