// Package domain provides core types and business logic for parallel
// query-translation evaluation runs. It defines questions, generation
// configurations, candidates, selections, outcomes, and run summaries
// used throughout the system. The types are designed to support
// reproducible, auditable evaluation runs under concurrency.
package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// Question is the immutable unit of work for a run: one natural-language
// question, optionally paired with ground truth for scoring.
type Question struct {
	// ID uniquely identifies the question within a run.
	ID string `json:"id" validate:"required"`

	// Text is the natural-language question to translate.
	Text string `json:"text" validate:"required"`

	// Dataset names the target dataset the generated code runs against.
	// Opaque to the engine; passed through to the Executor.
	Dataset string `json:"dataset,omitempty"`

	// GroundTruthCode is the reference query, if known. Executed by the
	// Evaluator to materialize a ground-truth table when GroundTruth is nil.
	GroundTruthCode string `json:"ground_truth_code,omitempty"`

	// GroundTruth is the pre-materialized ground-truth result table, if any.
	GroundTruth *ResultTable `json:"ground_truth,omitempty"`
}

// Validate checks that the question meets its contract requirements.
func (q *Question) Validate() error { return validate.Struct(q) }

// HasGroundTruth reports whether the question can be scored at all,
// either from a materialized table or from reference code.
func (q *Question) HasGroundTruth() bool {
	return q.GroundTruth != nil || q.GroundTruthCode != ""
}

// Configuration is the immutable tuple describing how one family of
// generation attempts is produced. A run combines one or more
// configurations; each contributes Attempts generation attempts per
// question.
type Configuration struct {
	// Provider identifies the text-generation provider.
	Provider string `json:"provider" yaml:"provider" validate:"required"`

	// Model identifies the model within the provider.
	Model string `json:"model" yaml:"model" validate:"required"`

	// Temperature is the sampling temperature requested from the provider.
	Temperature float64 `json:"temperature" yaml:"temperature" validate:"min=0,max=2"`

	// Context is the instruction context prepended to every prompt.
	Context string `json:"context,omitempty" yaml:"context"`

	// CacheNamespace partitions the prediction cache between experiments
	// sharing one cache path.
	CacheNamespace string `json:"cache_namespace,omitempty" yaml:"cache_namespace"`

	// RetryBudget bounds Translator invocations per attempt on transient
	// failures.
	RetryBudget int `json:"retry_budget" yaml:"retry_budget" validate:"min=1,max=10"`

	// Attempts is the number of generation attempts this configuration
	// contributes per question.
	Attempts int `json:"attempts" yaml:"attempts" validate:"min=1,max=32"`
}

// Validate checks that the configuration meets its contract requirements.
func (c *Configuration) Validate() error { return validate.Struct(c) }

// Fingerprint is the deterministic cache key derived from a question,
// a configuration, and an attempt index. Identical inputs always yield
// the identical fingerprint; changing any configuration field changes it.
type Fingerprint string

// String returns the hex form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// NewFingerprint digests the question, every configuration field, and the
// attempt index into a stable cache key. Fields are length-prefixed before
// hashing so that no two distinct field sequences collide by concatenation.
func NewFingerprint(q Question, cfg Configuration, attempt int) Fingerprint {
	h := sha256.New()
	writeField := func(s string) {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:])
		h.Write([]byte(s))
	}
	writeField(q.ID)
	writeField(q.Text)
	writeField(cfg.Provider)
	writeField(cfg.Model)
	writeField(strconv.FormatFloat(cfg.Temperature, 'g', -1, 64))
	writeField(cfg.Context)
	writeField(cfg.CacheNamespace)
	writeField(strconv.Itoa(cfg.RetryBudget))
	writeField(strconv.Itoa(attempt))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
