package evaluation

import (
	"context"
	"fmt"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Executor is the external collaborator that runs generated code against
// a target dataset and materializes a result table. The engine treats it
// as synchronous and fallible; it owns no state about the dataset schema.
type Executor interface {
	Run(ctx context.Context, code, dataset string) (*domain.ResultTable, error)
}

// QueryError indicates generated code executed but failed against the
// target dataset: malformed code or a runtime error. Distinct from a
// miss (wrong-but-executable) so run summaries permit separate diagnosis.
type QueryError struct {
	// Detail describes the execution failure.
	Detail string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("query error: %s: %v", e.Detail, e.Cause)
	}
	return "query error: " + e.Detail
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *QueryError) Unwrap() error { return e.Cause }
