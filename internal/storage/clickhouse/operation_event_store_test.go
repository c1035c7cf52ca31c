package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

func TestOperationEventStore_InsertAndVolume(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationEventStore(conn)
	ctx := context.Background()

	const mintA = "MintA111111111111111111111111111111111111111"

	events := []*domain.OperationEvent{
		{Timestamp: 1000, Kind: domain.KindMint, MintAddress: mintA, Amount: 500, Slot: 10, TxSignature: "sig-1", DurationMs: 120},
		{Timestamp: 2000, Kind: domain.KindTransfer, MintAddress: mintA, Amount: 300, Slot: 11, TxSignature: "sig-2", DurationMs: 95},
		{Timestamp: 3000, Kind: domain.KindTransfer, MintAddress: mintA, Amount: 200, Slot: 12, TxSignature: "sig-3", DurationMs: 88},
		{Timestamp: 2500, Kind: domain.KindMint, MintAddress: "OtherMint", Amount: 9999, Slot: 11, TxSignature: "sig-4", DurationMs: 40},
	}
	for _, e := range events {
		require.NoError(t, store.Insert(ctx, e))
	}

	// Window [1000, 2000] is inclusive on both ends.
	vol, err := store.VolumeByMint(ctx, mintA, 1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, uint64(800), vol)

	vol, err = store.VolumeByMint(ctx, mintA, 0, 10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), vol)

	vol, err = store.VolumeByMint(ctx, "NoSuchMint", 0, 10_000)
	require.NoError(t, err)
	assert.Zero(t, vol)
}

func TestOperationEventStore_InsertInvalid(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOperationEventStore(conn)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.OperationEvent{}), storage.ErrInvalidInput)
}
