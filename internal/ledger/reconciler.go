// Package ledger reconciles operation outcomes into the local transaction
// ledger and derives balances from it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-token-service/internal/apperr"
	"solana-token-service/internal/domain"
	"solana-token-service/internal/idhash"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/storage"
)

// Reconciler persists operation outcomes idempotently and answers
// history/balance/status queries from the accumulated ledger.
type Reconciler struct {
	mints  storage.MintStore
	txs    storage.TransactionStore
	rpc    solana.RPCClient
	logger *log.Logger
}

// New creates a Reconciler.
func New(mints storage.MintStore, txs storage.TransactionStore, rpc solana.RPCClient, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{mints: mints, txs: txs, rpc: rpc, logger: logger}
}

// RecordMint caches a newly created mint. Duplicate mint addresses are
// no-ops: the chain is the source of truth.
func (r *Reconciler) RecordMint(ctx context.Context, m *domain.Mint) error {
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixMilli()
	}
	if err := r.mints.Insert(ctx, m); err != nil {
		return fmt.Errorf("record mint %s: %w", m.MintAddress, err)
	}
	return nil
}

// Record upserts an operation outcome keyed by its transaction signature.
// Inserting an already-recorded signature updates status and slot only.
func (r *Reconciler) Record(ctx context.Context, rec *domain.TransactionRecord) error {
	if rec.TxSignature == "" {
		return storage.ErrInvalidInput
	}
	if rec.RecordID == "" {
		rec.RecordID = idhash.ComputeRecordID(string(rec.Kind), rec.TxSignature)
	}
	now := time.Now().UnixMilli()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if err := r.txs.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("record transaction %s: %w", rec.TxSignature, err)
	}
	return nil
}

// History returns a user's records ordered by creation time descending.
func (r *Reconciler) History(ctx context.Context, userID string, limit, offset int) ([]*domain.TransactionRecord, error) {
	records, err := r.txs.GetByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", userID, err)
	}
	return records, nil
}

// Balances folds confirmed records into per-mint balances for an owner
// address. Always recomputed, never cached.
func (r *Reconciler) Balances(ctx context.Context, address string) ([]*domain.TokenBalance, error) {
	balances, err := r.txs.BalancesByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("compute balances for %s: %w", address, err)
	}
	return balances, nil
}

// StatusResult is the outcome of a verification query.
type StatusResult struct {
	Signature string
	Status    domain.TransactionStatus
	Slot      *int64
}

// VerifyStatus re-queries the network for the current status of a signature
// and reconciles the stored row when the observed status differs. This is
// the only path by which a recorded status transitions after the fact.
// Signatures unknown to both the network and the ledger alter nothing.
func (r *Reconciler) VerifyStatus(ctx context.Context, signature string) (*StatusResult, error) {
	statuses, err := r.rpc.GetSignatureStatuses(ctx, []string{signature})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "query signature status", err)
	}

	result := &StatusResult{Signature: signature, Status: domain.StatusNotFound}
	if len(statuses) > 0 && statuses[0] != nil {
		st := statuses[0]
		if st.Err != nil {
			result.Status = domain.StatusFailed
		} else {
			result.Status = domain.StatusConfirmed
		}
		if st.Slot > 0 {
			slot := st.Slot
			result.Slot = &slot
		}
	}

	stored, err := r.txs.GetBySignature(ctx, signature)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Nothing recorded for this signature; report without writing.
			return result, nil
		}
		return nil, apperr.Wrap(apperr.KindStorage, "load stored transaction", err)
	}

	if stored.Status != result.Status {
		slot := result.Slot
		if slot == nil {
			slot = stored.Slot
		}
		if err := r.txs.UpdateStatus(ctx, signature, result.Status, slot); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "update stored status", err)
		}
		r.logger.Printf("reconciled %s: %s -> %s", signature, stored.Status, result.Status)
	}

	return result, nil
}
