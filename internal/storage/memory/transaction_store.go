package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
type TransactionStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.TransactionRecord // keyed by tx_signature
	mints *MintStore
}

// NewTransactionStore creates a new in-memory transaction store. The mint
// store supplies decimals for balance rows; it may be nil.
func NewTransactionStore(mints *MintStore) *TransactionStore {
	return &TransactionStore{
		data:  make(map[string]*domain.TransactionRecord),
		mints: mints,
	}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Upsert records an operation outcome keyed by tx_signature. On conflict
// only status, slot and updated_at change.
func (s *TransactionStore) Upsert(_ context.Context, t *domain.TransactionRecord) error {
	if t == nil || t.TxSignature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[t.TxSignature]; ok {
		existing.Status = t.Status
		existing.Slot = t.Slot
		existing.UpdatedAt = t.UpdatedAt
		return nil
	}

	recordCopy := *t
	recordCopy.Metadata = copyMetadata(t.Metadata)
	s.data[t.TxSignature] = &recordCopy
	return nil
}

// GetBySignature retrieves a record by transaction signature.
func (s *TransactionStore) GetBySignature(_ context.Context, signature string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyRecord(t), nil
}

// GetByUser retrieves records for a user, newest first, paginated.
func (s *TransactionStore) GetByUser(_ context.Context, userID string, limit, offset int) ([]*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.TransactionRecord
	for _, t := range s.data {
		if t.UserID == userID {
			matched = append(matched, t)
		}
	}

	// Newest first; record_id DESC breaks created_at ties so pages stay stable.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt != matched[j].CreatedAt {
			return matched[i].CreatedAt > matched[j].CreatedAt
		}
		return matched[i].RecordID > matched[j].RecordID
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	result := make([]*domain.TransactionRecord, 0, len(matched))
	for _, t := range matched {
		result = append(result, copyRecord(t))
	}
	return result, nil
}

// UpdateStatus sets status and slot for an existing record and refreshes
// updated_at, matching the postgres store.
func (s *TransactionStore) UpdateStatus(_ context.Context, signature string, status domain.TransactionStatus, slot *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[signature]
	if !exists {
		return storage.ErrNotFound
	}

	t.Status = status
	t.Slot = slot
	t.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// BalancesByAddress folds confirmed records into per-mint balances for an
// owner address. A transfer contributes two postings: credit to_address,
// debit from_address.
func (s *TransactionStore) BalancesByAddress(_ context.Context, address string) ([]*domain.TokenBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int64)
	for _, t := range s.data {
		if t.Status != domain.StatusConfirmed {
			continue
		}
		if t.ToAddress != nil && *t.ToAddress == address {
			totals[t.MintAddress] += int64(t.Amount)
		}
		if t.FromAddress != nil && *t.FromAddress == address {
			totals[t.MintAddress] -= int64(t.Amount)
		}
	}

	mints := make([]string, 0, len(totals))
	for mint := range totals {
		mints = append(mints, mint)
	}
	sort.Strings(mints)

	balances := make([]*domain.TokenBalance, 0, len(mints))
	for _, mint := range mints {
		balances = append(balances, &domain.TokenBalance{
			MintAddress: mint,
			Decimals:    s.decimalsFor(mint),
			Balance:     totals[mint],
		})
	}
	return balances, nil
}

func (s *TransactionStore) decimalsFor(mint string) uint8 {
	if s.mints == nil {
		return 0
	}
	m, err := s.mints.GetByAddress(context.Background(), mint)
	if err != nil {
		return 0
	}
	return m.Decimals
}

func copyRecord(t *domain.TransactionRecord) *domain.TransactionRecord {
	recordCopy := *t
	recordCopy.Metadata = copyMetadata(t.Metadata)
	return &recordCopy
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
