package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `
	record_id, user_id, tx_signature, kind, amount, mint_address,
	from_address, to_address, status, slot, metadata, created_at, updated_at
`

// Upsert records an operation outcome keyed by tx_signature. On conflict
// only status, slot and updated_at change; all other fields keep their
// original values.
func (s *TransactionStore) Upsert(ctx context.Context, t *domain.TransactionRecord) (err error) {
	if t == nil || t.TxSignature == "" {
		return storage.ErrInvalidInput
	}
	defer observe("transaction_upsert", time.Now(), &err)

	metadata, err := json.Marshal(metadataOrEmpty(t.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tx_signature) DO UPDATE SET
			status = EXCLUDED.status,
			slot = EXCLUDED.slot,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		t.RecordID, t.UserID, t.TxSignature, string(t.Kind), int64(t.Amount), t.MintAddress,
		t.FromAddress, t.ToAddress, string(t.Status), t.Slot, metadata, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

// GetBySignature retrieves a record by transaction signature.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature string) (_ *domain.TransactionRecord, err error) {
	defer observe("transaction_get_by_signature", time.Now(), &err)

	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE tx_signature = $1
	`

	t, err := scanTransaction(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by signature: %w", err)
	}
	return t, nil
}

// GetByUser retrieves records for a user, newest first, paginated.
func (s *TransactionStore) GetByUser(ctx context.Context, userID string, limit, offset int) (_ []*domain.TransactionRecord, err error) {
	defer observe("transaction_get_by_user", time.Now(), &err)

	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, record_id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get transactions by user: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// UpdateStatus sets status and slot for an existing record.
func (s *TransactionStore) UpdateStatus(ctx context.Context, signature string, status domain.TransactionStatus, slot *int64) (err error) {
	defer observe("transaction_update_status", time.Now(), &err)

	query := `
		UPDATE ledger_transactions
		SET status = $1, slot = $2, updated_at = (EXTRACT(EPOCH FROM NOW()) * 1000)::BIGINT
		WHERE tx_signature = $3
	`

	tag, err := s.pool.Exec(ctx, query, string(status), slot, signature)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// BalancesByAddress folds confirmed records into per-mint balances for an
// owner address. A transfer contributes two postings: credit to_address,
// debit from_address.
func (s *TransactionStore) BalancesByAddress(ctx context.Context, address string) (_ []*domain.TokenBalance, err error) {
	defer observe("balances_by_address", time.Now(), &err)

	query := `
		SELECT p.mint_address, COALESCE(m.decimals, 0), SUM(p.delta)::BIGINT
		FROM (
			SELECT mint_address, amount AS delta
			FROM ledger_transactions
			WHERE status = 'confirmed' AND to_address = $1
			UNION ALL
			SELECT mint_address, -amount
			FROM ledger_transactions
			WHERE status = 'confirmed' AND from_address = $1
		) p
		LEFT JOIN mints m ON m.mint_address = p.mint_address
		GROUP BY p.mint_address, m.decimals
		ORDER BY p.mint_address
	`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("compute balances by address: %w", err)
	}
	defer rows.Close()

	var balances []*domain.TokenBalance
	for rows.Next() {
		var b domain.TokenBalance
		var decimals int16
		if err := rows.Scan(&b.MintAddress, &decimals, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}
		b.Decimals = uint8(decimals)
		balances = append(balances, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance rows: %w", err)
	}

	return balances, nil
}

// scanTransaction scans a single row into a TransactionRecord.
func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	var t domain.TransactionRecord
	var kind, status string
	var amount int64
	var metadata []byte

	err := row.Scan(
		&t.RecordID, &t.UserID, &t.TxSignature, &kind, &amount, &t.MintAddress,
		&t.FromAddress, &t.ToAddress, &status, &t.Slot, &metadata, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Kind = domain.TransactionKind(kind)
	t.Status = domain.TransactionStatus(status)
	t.Amount = uint64(amount)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &t, nil
}

// scanTransactions scans multiple rows into a slice of TransactionRecord.
func scanTransactions(rows pgx.Rows) ([]*domain.TransactionRecord, error) {
	var records []*domain.TransactionRecord

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		records = append(records, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return records, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
