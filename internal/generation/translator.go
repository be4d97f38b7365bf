// Package generation produces candidates: it wraps the external
// Translator collaborator with fingerprint-keyed caching and bounded
// retry of transient failures, converting every failure mode into a
// typed candidate status instead of propagating faults upward.
package generation

import (
	"context"

	"github.com/ahrav/go-quorum/internal/domain"
)

// TranslationRequest carries everything the Translator needs for one
// generation call. Prompt construction is the Translator's concern; the
// engine only guarantees that a deterministic fingerprint can be derived
// from (question, configuration, attempt) independent of what the
// Translator does internally.
type TranslationRequest struct {
	// Question is the natural-language question to translate.
	Question domain.Question

	// Config selects provider, model, temperature, and instruction context.
	Config domain.Configuration

	// Attempt is the attempt index, surfaced so providers that support
	// seed-per-sample can vary their sampling.
	Attempt int

	// Credential is the opaque key the calling worker is bound to.
	Credential string
}

// TranslationResult is the Translator's parsed response.
type TranslationResult struct {
	// Code is the generated query text. Empty code with a nil error is
	// recorded as an empty-status candidate.
	Code string

	// Explanation is the provider's natural-language rationale, if any.
	Explanation string

	// RawText is the unparsed provider response.
	RawText string

	// Usage carries provider-reported token/cost metadata, if any.
	Usage *domain.UsageMetadata
}

// Translator is the external natural-language-to-code collaborator.
// Implementations own prompt construction and any internal correction
// loop; the engine treats a call as a single fallible, blocking unit
// subject to the caller's context deadline.
type Translator interface {
	Generate(ctx context.Context, req TranslationRequest) (*TranslationResult, error)
}
