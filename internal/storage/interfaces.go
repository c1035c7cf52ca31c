package storage

import (
	"context"

	"solana-token-service/internal/domain"
)

// MintStore provides access to mints storage.
type MintStore interface {
	// Insert adds a new mint. A duplicate mint_address is a no-op:
	// the on-chain account is the source of truth and the row is a cache.
	Insert(ctx context.Context, m *domain.Mint) error

	// GetByAddress retrieves a mint by its address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, mintAddress string) (*domain.Mint, error)
}

// TransactionStore provides access to ledger_transactions storage.
type TransactionStore interface {
	// Upsert records an operation outcome keyed by tx_signature: insert if
	// absent; on conflict update status, slot and updated_at only, leaving
	// all other fields untouched.
	Upsert(ctx context.Context, t *domain.TransactionRecord) error

	// GetBySignature retrieves a record by transaction signature.
	// Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.TransactionRecord, error)

	// GetByUser retrieves records for a user ordered by created_at DESC,
	// paginated by limit/offset.
	GetByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.TransactionRecord, error)

	// UpdateStatus sets status and slot for an existing record and refreshes
	// updated_at. Returns ErrNotFound if no row has the signature.
	UpdateStatus(ctx context.Context, signature string, status domain.TransactionStatus, slot *int64) error

	// BalancesByAddress folds confirmed records into per-mint balances for
	// an owner address: credit rows where to_address matches, debit rows
	// where from_address matches. Mints with no confirmed activity are absent.
	BalancesByAddress(ctx context.Context, address string) ([]*domain.TokenBalance, error)
}

// OperationEventStore provides access to the operation_events analytics sink.
type OperationEventStore interface {
	// Insert adds one analytics row per completed operation.
	Insert(ctx context.Context, e *domain.OperationEvent) error

	// VolumeByMint sums operation amounts for a mint within [start, end] (ms, inclusive).
	VolumeByMint(ctx context.Context, mintAddress string, start, end int64) (uint64, error)
}
