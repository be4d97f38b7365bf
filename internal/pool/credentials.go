// Package pool distributes generation work units across workers bound to
// provider credentials. Each credential is the rate-limit isolation unit:
// a fixed number of workers multiplex on it for their entire lifetime, so
// per-credential concurrency never exceeds the provider's limit.
package pool

import "errors"

// ErrNoCredentials indicates pool construction without any credentials.
var ErrNoCredentials = errors.New("credential pool requires at least one credential")

// CredentialPool owns the run's fixed, ordered set of opaque credentials.
// The assignment table is read-only after construction; workers never
// switch credentials at runtime, so no locking is needed.
type CredentialPool struct {
	keys []string
}

// NewCredentialPool creates a pool over the given keys, preserving order.
func NewCredentialPool(keys []string) (*CredentialPool, error) {
	if len(keys) == 0 {
		return nil, ErrNoCredentials
	}
	return &CredentialPool{keys: append([]string(nil), keys...)}, nil
}

// Size returns the number of credentials.
func (p *CredentialPool) Size() int { return len(p.keys) }

// ForWorker returns the credential bound to workerIndex given
// processesPerKey workers per credential. Worker i uses credential
// i/processesPerKey for its whole lifetime.
func (p *CredentialPool) ForWorker(workerIndex, processesPerKey int) string {
	return p.keys[(workerIndex/processesPerKey)%len(p.keys)]
}

// CredentialIndex returns the credential slot for workerIndex, used to
// share one rate limiter among the workers bound to the same credential.
func (p *CredentialPool) CredentialIndex(workerIndex, processesPerKey int) int {
	return (workerIndex / processesPerKey) % len(p.keys)
}
