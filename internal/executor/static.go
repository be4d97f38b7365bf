// Package executor provides Executor implementations for the CLI driver.
// Sandboxed query execution is an external concern; Static serves
// pre-materialized result tables from a fixture file so runs can be
// scored offline against frozen execution results.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ensemble"
	"github.com/ahrav/go-quorum/internal/evaluation"
)

// Static resolves generated code to result tables from a fixture keyed
// by canonicalized code. Code absent from the fixture is a query error,
// mirroring how a live executor rejects code it cannot run.
type Static struct {
	tables map[string]*domain.ResultTable
}

// fixture is the on-disk shape: dataset -> canonical code -> table.
type fixture map[string]map[string]*domain.ResultTable

// LoadStatic reads a JSON fixture of execution results.
func LoadStatic(path string) (*Static, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- fixture path is operator-supplied
	if err != nil {
		return nil, fmt.Errorf("read execution fixture: %w", err)
	}

	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse execution fixture: %w", err)
	}

	tables := make(map[string]*domain.ResultTable)
	for dataset, byCode := range fx {
		for code, table := range byCode {
			tables[fixtureKey(dataset, code)] = table
		}
	}
	return &Static{tables: tables}, nil
}

// Run implements evaluation.Executor.
func (s *Static) Run(_ context.Context, code, dataset string) (*domain.ResultTable, error) {
	if table, ok := s.tables[fixtureKey(dataset, code)]; ok {
		return table, nil
	}
	return nil, &evaluation.QueryError{
		Detail: fmt.Sprintf("no execution result recorded for query against %q", dataset),
	}
}

// fixtureKey canonicalizes the lookup so formatting differences between
// the generated code and the fixture's key do not cause spurious misses.
func fixtureKey(dataset, code string) string {
	return strings.ToLower(dataset) + "\x1f" + ensemble.Canonicalize(code)
}
