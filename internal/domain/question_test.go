package domain //nolint:testpackage // Need access to unexported validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfiguration() Configuration {
	return Configuration{
		Provider:       "google",
		Model:          "gemini-2.5-pro",
		Temperature:    0.2,
		Context:        "cheatsheet",
		CacheNamespace: "bird_cot",
		RetryBudget:    3,
		Attempts:       3,
	}
}

// TestQuestion_Validate verifies required-field enforcement on questions.
func TestQuestion_Validate(t *testing.T) {
	tests := []struct {
		name     string
		question Question
		wantErr  bool
	}{
		{"valid", Question{ID: "q1", Text: "total sales per region"}, false},
		{"missing id", Question{Text: "total sales per region"}, true},
		{"missing text", Question{ID: "q1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.question.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestConfiguration_Validate verifies range constraints on configurations.
func TestConfiguration_Validate(t *testing.T) {
	valid := validConfiguration()
	require.NoError(t, valid.Validate())

	noRetries := valid
	noRetries.RetryBudget = 0
	assert.Error(t, noRetries.Validate())

	noAttempts := valid
	noAttempts.Attempts = 0
	assert.Error(t, noAttempts.Validate())

	hotTemperature := valid
	hotTemperature.Temperature = 3.5
	assert.Error(t, hotTemperature.Validate())
}

// TestNewFingerprint_Deterministic verifies that identical inputs always
// yield the identical fingerprint.
func TestNewFingerprint_Deterministic(t *testing.T) {
	q := Question{ID: "q1", Text: "total sales per region"}
	cfg := validConfiguration()

	first := NewFingerprint(q, cfg, 0)
	second := NewFingerprint(q, cfg, 0)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.String())
}

// TestNewFingerprint_Sensitivity verifies that changing any single
// configuration field, the attempt index, or the question changes the
// fingerprint, so no cache hit crosses incompatible settings.
func TestNewFingerprint_Sensitivity(t *testing.T) {
	q := Question{ID: "q1", Text: "total sales per region"}
	base := validConfiguration()
	baseline := NewFingerprint(q, base, 0)

	tests := []struct {
		name   string
		mutate func() Fingerprint
	}{
		{"model", func() Fingerprint {
			c := base
			c.Model = "gemini-2.5-flash"
			return NewFingerprint(q, c, 0)
		}},
		{"temperature", func() Fingerprint {
			c := base
			c.Temperature = 0.7
			return NewFingerprint(q, c, 0)
		}},
		{"context", func() Fingerprint {
			c := base
			c.Context = "different cheatsheet"
			return NewFingerprint(q, c, 0)
		}},
		{"provider", func() Fingerprint {
			c := base
			c.Provider = "openai"
			return NewFingerprint(q, c, 0)
		}},
		{"cache namespace", func() Fingerprint {
			c := base
			c.CacheNamespace = "other_experiment"
			return NewFingerprint(q, c, 0)
		}},
		{"retry budget", func() Fingerprint {
			c := base
			c.RetryBudget = 5
			return NewFingerprint(q, c, 0)
		}},
		{"attempt index", func() Fingerprint {
			return NewFingerprint(q, base, 1)
		}},
		{"question text", func() Fingerprint {
			q2 := q
			q2.Text = "total sales per city"
			return NewFingerprint(q2, base, 0)
		}},
		{"question id", func() Fingerprint {
			q2 := q
			q2.ID = "q2"
			return NewFingerprint(q2, base, 0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, baseline, tt.mutate())
		})
	}
}

// TestNewFingerprint_NoConcatenationCollision verifies the length-prefix
// framing: shifting a boundary between adjacent fields must not produce
// the same digest.
func TestNewFingerprint_NoConcatenationCollision(t *testing.T) {
	cfg := validConfiguration()
	a := NewFingerprint(Question{ID: "ab", Text: "c"}, cfg, 0)
	b := NewFingerprint(Question{ID: "a", Text: "bc"}, cfg, 0)
	assert.NotEqual(t, a, b)
}
