package memory

import (
	"context"
	"sync"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// MintStore is an in-memory implementation of storage.MintStore.
type MintStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Mint // keyed by mint_address
}

// NewMintStore creates a new in-memory mint store.
func NewMintStore() *MintStore {
	return &MintStore{
		data: make(map[string]*domain.Mint),
	}
}

// Compile-time interface check.
var _ storage.MintStore = (*MintStore)(nil)

// Insert adds a mint. Re-inserting an existing address is a no-op; the
// first record wins.
func (s *MintStore) Insert(_ context.Context, m *domain.Mint) error {
	if m == nil || m.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.MintAddress]; exists {
		return nil
	}

	// Store a copy to prevent external mutation
	mintCopy := *m
	s.data[m.MintAddress] = &mintCopy
	return nil
}

// GetByAddress retrieves a mint by its address. Returns ErrNotFound if not exists.
func (s *MintStore) GetByAddress(_ context.Context, address string) (*domain.Mint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	mintCopy := *m
	return &mintCopy, nil
}
