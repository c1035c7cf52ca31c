package memory

import (
	"context"
	"sync"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// OperationEventStore is an in-memory implementation of storage.OperationEventStore.
type OperationEventStore struct {
	mu     sync.RWMutex
	events []*domain.OperationEvent
}

// NewOperationEventStore creates a new in-memory operation event store.
func NewOperationEventStore() *OperationEventStore {
	return &OperationEventStore{}
}

// Compile-time interface check.
var _ storage.OperationEventStore = (*OperationEventStore)(nil)

// Insert adds one analytics row.
func (s *OperationEventStore) Insert(_ context.Context, e *domain.OperationEvent) error {
	if e == nil || e.TxSignature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	return nil
}

// VolumeByMint sums operation amounts for a mint within [start, end] (ms, inclusive).
func (s *OperationEventStore) VolumeByMint(_ context.Context, mintAddress string, start, end int64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total uint64
	for _, e := range s.events {
		if e.MintAddress == mintAddress && e.Timestamp >= start && e.Timestamp <= end {
			total += e.Amount
		}
	}
	return total, nil
}
