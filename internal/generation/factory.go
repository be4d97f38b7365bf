package generation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ahrav/go-quorum/internal/cache"
	"github.com/ahrav/go-quorum/internal/domain"
)

// Factory produces one candidate per (question, configuration, attempt)
// by consulting the prediction cache, invoking the Translator on misses
// with bounded retry of transient failures, and caching the result.
//
// Every failure mode becomes a typed candidate status; Produce never
// returns an error. Over the life of a run a fingerprint sees at most
// one successful Translator invocation (enforced by the cache's
// first-writer-wins Put) and zero-to-RetryBudget invocations total.
type Factory struct {
	translator Translator
	store      *cache.Store
	backoff    BackoffConfig
	logger     *slog.Logger
	stats      Stats
}

// NewFactory creates a prediction factory. A nil logger disables logging.
func NewFactory(translator Translator, store *cache.Store, backoff BackoffConfig, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Factory{
		translator: translator,
		store:      store,
		backoff:    backoff,
		logger:     logger,
	}
}

// Produce returns the candidate for (q, cfg, attempt), generating it via
// the Translator only on a cache miss. The caller's context carries the
// per-unit wall-clock deadline; expiry yields a timeout-status candidate.
func (f *Factory) Produce(ctx context.Context, q domain.Question, cfg domain.Configuration, configIndex, attempt int, credential string) domain.Candidate {
	fp := domain.NewFingerprint(q, cfg, attempt)

	if cached, found, err := f.store.Get(cfg.CacheNamespace, fp); err != nil {
		// Store trouble is never fatal to the unit; regenerate below.
		f.logger.Warn("prediction cache read failed, regenerating",
			"question_id", q.ID, "fingerprint", fp.String(), "error", err)
	} else if found {
		f.logger.Debug("prediction cache hit",
			"question_id", q.ID, "config_index", configIndex, "attempt", attempt)
		return f.rebind(cached, q.ID, configIndex, attempt, fp)
	}

	cand := f.generate(ctx, q, cfg, configIndex, attempt, credential, fp)

	// Only settled generations are cached: ok and empty are deterministic
	// judgments about provider output, while generation errors and
	// timeouts should be retried on the next run.
	if cand.Status == domain.CandidateStatusOK || cand.Status == domain.CandidateStatusEmpty {
		stored, err := f.store.Put(cfg.CacheNamespace, fp, cand)
		if err != nil {
			f.logger.Warn("prediction cache write failed",
				"question_id", q.ID, "fingerprint", fp.String(), "error", err)
			return cand
		}
		// A concurrent writer may have won the race; return its candidate
		// so repeated Produce calls observe identical content.
		return f.rebind(stored, q.ID, configIndex, attempt, fp)
	}
	return cand
}

// generate drives the Translator retry loop for one cache miss.
func (f *Factory) generate(ctx context.Context, q domain.Question, cfg domain.Configuration, configIndex, attempt int, credential string, fp domain.Fingerprint) domain.Candidate {
	base := domain.Candidate{
		QuestionID:  q.ID,
		ConfigIndex: configIndex,
		Attempt:     attempt,
		Fingerprint: fp,
	}

	req := TranslationRequest{
		Question:   q,
		Config:     cfg,
		Attempt:    attempt,
		Credential: credential,
	}

	var lastErr *TranslationError
	for try := 1; try <= cfg.RetryBudget; try++ {
		if ctx.Err() != nil {
			return f.timeoutCandidate(base, ctx.Err())
		}

		f.stats.recordInvocation()
		result, err := f.translator.Generate(ctx, req)
		if err == nil {
			return f.fromResult(base, result)
		}

		// The unit deadline expiring mid-call is a timeout, not a
		// provider fault, regardless of how the Translator wrapped it.
		if ctx.Err() != nil {
			return f.timeoutCandidate(base, err)
		}

		lastErr = Classify(err, cfg.Provider)
		if !lastErr.IsTransient() {
			f.stats.recordTerminalError()
			return f.errorCandidate(base, lastErr.Error())
		}

		f.stats.recordTransientError()
		if try == cfg.RetryBudget {
			break
		}

		delay := f.backoff.calculateBackoff(try, lastErr)
		f.logger.Debug("transient translation failure, backing off",
			"question_id", q.ID, "attempt", attempt, "try", try,
			"delay", delay, "error", lastErr)
		select {
		case <-ctx.Done():
			return f.timeoutCandidate(base, ctx.Err())
		case <-time.After(delay):
		}
	}

	f.stats.recordTerminalError()
	detail := ErrRetryBudgetExhausted.Error()
	if lastErr != nil {
		detail = detail + ": " + lastErr.Error()
	}
	return f.errorCandidate(base, detail)
}

// fromResult builds the candidate for a successful Translator call.
func (f *Factory) fromResult(base domain.Candidate, result *TranslationResult) domain.Candidate {
	base.Code = result.Code
	base.Explanation = result.Explanation
	base.RawResponse = result.RawText
	base.Usage = result.Usage
	if result.Code == "" {
		base.Status = domain.CandidateStatusEmpty
		base.ErrorDetail = "provider returned no code"
		return base
	}
	base.Status = domain.CandidateStatusOK
	return base
}

func (f *Factory) errorCandidate(base domain.Candidate, detail string) domain.Candidate {
	base.Status = domain.CandidateStatusGenerationError
	base.ErrorDetail = detail
	return base
}

func (f *Factory) timeoutCandidate(base domain.Candidate, cause error) domain.Candidate {
	f.stats.recordTimeout()
	base.Status = domain.CandidateStatusTimeout
	if cause != nil && !errors.Is(cause, context.DeadlineExceeded) {
		base.ErrorDetail = cause.Error()
	} else {
		base.ErrorDetail = "work unit deadline exceeded"
	}
	return base
}

// rebind stamps a cached candidate with the requesting unit's identity.
// Cached content (code, explanation, usage, status) is returned verbatim;
// only the origin coordinates are refreshed, which matters when the same
// fingerprint is observed under a different configuration index in a
// later run.
func (f *Factory) rebind(c domain.Candidate, questionID string, configIndex, attempt int, fp domain.Fingerprint) domain.Candidate {
	c.QuestionID = questionID
	c.ConfigIndex = configIndex
	c.Attempt = attempt
	c.Fingerprint = fp
	return c
}

// Stats returns a snapshot of the factory's counters.
func (f *Factory) Stats() StatsSnapshot { return f.stats.snapshot() }
