package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/storage"
)

// OperationEventStore implements storage.OperationEventStore using ClickHouse.
type OperationEventStore struct {
	conn *Conn
}

// NewOperationEventStore creates a new OperationEventStore.
func NewOperationEventStore(conn *Conn) *OperationEventStore {
	return &OperationEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OperationEventStore = (*OperationEventStore)(nil)

// Insert adds one analytics row. MergeTree does not enforce uniqueness;
// the caller writes each tx_signature once.
func (s *OperationEventStore) Insert(ctx context.Context, e *domain.OperationEvent) (err error) {
	if e == nil || e.TxSignature == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "event_insert", time.Since(start).Seconds(), err)
	}(time.Now())

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO operation_events (
			timestamp_ms, kind, mint_address, amount, slot, tx_signature, duration_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		uint64(e.Timestamp), string(e.Kind), e.MintAddress,
		e.Amount, e.Slot, e.TxSignature, e.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// VolumeByMint sums operation amounts for a mint within [start, end] (ms, inclusive).
func (s *OperationEventStore) VolumeByMint(ctx context.Context, mintAddress string, start, end int64) (_ uint64, err error) {
	defer func(t0 time.Time) {
		observability.RecordDBQuery("clickhouse", "volume_by_mint", time.Since(t0).Seconds(), err)
	}(time.Now())

	query := `
		SELECT sum(amount) FROM operation_events
		WHERE mint_address = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`

	var total uint64
	err = s.conn.QueryRow(ctx, query, mintAddress, uint64(start), uint64(end)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query volume by mint: %w", err)
	}
	return total, nil
}
