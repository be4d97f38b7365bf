package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrorType categorizes translation failures for retry classification.
// Types determine whether an attempt should be retried with backoff or
// surfaced as a terminal generation-error candidate.
type ErrorType string

const (
	// ErrorTypeNetwork indicates network connectivity issues (transient).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeRateLimit indicates the provider rejected the call for
	// rate limiting, retry with backoff (transient).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeProvider indicates the provider service errored or was
	// unavailable (transient).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeMalformedOutput indicates the provider responded but its
	// output could not be parsed into code (terminal).
	ErrorTypeMalformedOutput ErrorType = "malformed_output"

	// ErrorTypeAuth indicates the credential was rejected (terminal).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeUnknown indicates an unclassified error (terminal).
	ErrorTypeUnknown ErrorType = "unknown"
)

// Sentinel errors for consistent handling across the package.
var (
	// ErrMalformedOutput indicates unparseable provider output.
	ErrMalformedOutput = errors.New("malformed provider output")

	// ErrRetryBudgetExhausted indicates every retry of one attempt failed.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
)

// TranslationError is a classified translation failure carrying enough
// context for retry decisions and candidate error detail.
type TranslationError struct {
	// Type drives the transient-versus-terminal decision.
	Type ErrorType

	// Provider identifies the provider that failed.
	Provider string

	// StatusCode is the provider HTTP status, when applicable.
	StatusCode int

	// Message is the human-readable failure description.
	Message string

	// RetryAfter is provider-supplied retry guidance, when present.
	RetryAfter time.Duration

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TranslationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (provider=%s, status=%d)", e.Type, e.Message, e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (provider=%s)", e.Type, e.Message, e.Provider)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *TranslationError) Unwrap() error { return e.Cause }

// IsTransient reports whether the failure should be retried with the
// same inputs inside the factory's retry budget.
func (e *TranslationError) IsTransient() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// Classify transforms a raw Translator error into a TranslationError
// with retry guidance. Strongly-typed errors are examined first, then
// sentinel errors via errors.Is, then string-pattern matching as a
// fallback for untyped provider SDK errors.
func Classify(err error, provider string) *TranslationError {
	if err == nil {
		return nil
	}

	var terr *TranslationError
	if errors.As(err, &terr) {
		return terr
	}

	if terr := classifySentinels(err, provider); terr != nil {
		return terr
	}

	return classifyStringPatterns(err, provider)
}

// classifySentinels handles sentinel and stdlib error classification.
func classifySentinels(err error, provider string) *TranslationError {
	if errors.Is(err, ErrMalformedOutput) {
		return &TranslationError{
			Type:     ErrorTypeMalformedOutput,
			Provider: provider,
			Message:  err.Error(),
			Cause:    err,
		}
	}

	// Context cancellation and deadline expiry belong to the caller's
	// timeout policy, not to retry classification; surface them as
	// provider errors only when wrapped by the provider itself.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &TranslationError{
			Type:     ErrorTypeNetwork,
			Provider: provider,
			Message:  err.Error(),
			Cause:    err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TranslationError{
			Type:     ErrorTypeNetwork,
			Provider: provider,
			Message:  netErr.Error(),
			Cause:    err,
		}
	}
	return nil
}

// classifyStringPatterns is the last-resort classification for untyped
// errors bubbled up from provider SDKs.
func classifyStringPatterns(err error, provider string) *TranslationError {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"),
		strings.Contains(msg, fmt.Sprintf("%d", http.StatusTooManyRequests)):
		return &TranslationError{
			Type: ErrorTypeRateLimit, Provider: provider, Message: err.Error(), Cause: err,
		}
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "api key"):
		return &TranslationError{
			Type: ErrorTypeAuth, Provider: provider, Message: err.Error(), Cause: err,
		}
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "internal server error"), strings.Contains(msg, "bad gateway"):
		return &TranslationError{
			Type: ErrorTypeProvider, Provider: provider, Message: err.Error(), Cause: err,
		}
	case strings.Contains(msg, "connection"), strings.Contains(msg, "timeout"),
		strings.Contains(msg, "no such host"):
		return &TranslationError{
			Type: ErrorTypeNetwork, Provider: provider, Message: err.Error(), Cause: err,
		}
	default:
		return &TranslationError{
			Type: ErrorTypeUnknown, Provider: provider, Message: err.Error(), Cause: err,
		}
	}
}
