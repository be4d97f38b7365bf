package domain

import "errors"

// ErrInvalidCandidateStatus indicates a candidate carries an undefined status.
var ErrInvalidCandidateStatus = errors.New("invalid candidate status")

// ErrInvalidOutcomeStatus indicates an outcome carries an undefined status.
var ErrInvalidOutcomeStatus = errors.New("invalid outcome status")

// ErrInvalidConfiguration indicates a generation configuration failed validation.
var ErrInvalidConfiguration = errors.New("invalid generation configuration")

// ErrNoCandidates indicates selection was attempted on an empty eligible set.
var ErrNoCandidates = errors.New("no eligible candidates")

// ErrInvalidTransition indicates a question lifecycle transition that the
// state machine does not permit.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// ErrCorrectionBudgetExhausted indicates the bounded correction counter
// reached zero while query errors were still occurring.
var ErrCorrectionBudgetExhausted = errors.New("correction budget exhausted")
