// Package ledger is the boundary to the system of record for dispatched
// decisions. The production implementation appends to a Hyperledger Fabric
// channel through the peer CLI; tests use the in-memory ledger. The contract
// is only: a write is attempted, and a correlation id comes back on success.
package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Ledger performs a durable write and returns an opaque correlation id.
type Ledger interface {
	Submit(ctx context.Context, payload []byte) (string, error)
}

// Memory is an in-memory Ledger for tests and simulation runs.
type Memory struct {
	mu      sync.Mutex
	entries [][]byte

	// FailWith, when set, makes every Submit fail with this error.
	FailWith error
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{}
}

// Submit records the payload and returns a fresh correlation id.
func (m *Memory) Submit(_ context.Context, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return "", m.FailWith
	}

	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.entries = append(m.entries, cp)
	return "tx-" + uuid.New().String(), nil
}

// Entries returns a copy of everything written so far.
func (m *Memory) Entries() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.entries))
	copy(out, m.entries)
	return out
}
