package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

func ptr[T any](v T) *T {
	return &v
}

func testRecord(i int) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		RecordID:    fmt.Sprintf("record-%03d", i),
		UserID:      "user-1",
		TxSignature: fmt.Sprintf("sig-%03d", i),
		Kind:        domain.KindMint,
		Amount:      1000,
		MintAddress: "Mint111111111111111111111111111111111111111",
		ToAddress:   ptr("Owner11111111111111111111111111111111111111"),
		Status:      domain.StatusConfirmed,
		CreatedAt:   int64(1700000000000 + i),
		UpdatedAt:   int64(1700000000000 + i),
	}
}

func TestTransactionStore_UpsertAndGet(t *testing.T) {
	store := NewTransactionStore(nil)
	ctx := context.Background()

	rec := testRecord(1)
	rec.Metadata = map[string]string{"decimals": "9"}
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.GetBySignature(ctx, rec.TxSignature)
	require.NoError(t, err)
	assert.Equal(t, rec.RecordID, got.RecordID)
	assert.Equal(t, rec.Metadata, got.Metadata)

	// Mutating the returned copy must not affect the store.
	got.Metadata["decimals"] = "0"
	got.Amount = 0
	again, err := store.GetBySignature(ctx, rec.TxSignature)
	require.NoError(t, err)
	assert.Equal(t, "9", again.Metadata["decimals"])
	assert.Equal(t, uint64(1000), again.Amount)
}

func TestTransactionStore_UpsertConflictUpdatesStatusOnly(t *testing.T) {
	store := NewTransactionStore(nil)
	ctx := context.Background()

	rec := testRecord(1)
	rec.Status = domain.StatusPending
	require.NoError(t, store.Upsert(ctx, rec))

	dup := testRecord(1)
	dup.UserID = "user-other"
	dup.Amount = 999999
	dup.Status = domain.StatusConfirmed
	dup.Slot = ptr(int64(777))
	require.NoError(t, store.Upsert(ctx, dup))

	got, err := store.GetBySignature(ctx, rec.TxSignature)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, uint64(1000), got.Amount)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	require.NotNil(t, got.Slot)
	assert.Equal(t, int64(777), *got.Slot)
}

func TestTransactionStore_UpsertInvalid(t *testing.T) {
	store := NewTransactionStore(nil)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)

	rec := testRecord(1)
	rec.TxSignature = ""
	assert.ErrorIs(t, store.Upsert(ctx, rec), storage.ErrInvalidInput)
}

func TestTransactionStore_GetByUserOrderingAndPagination(t *testing.T) {
	store := NewTransactionStore(nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Upsert(ctx, testRecord(i)))
	}

	page, err := store.GetByUser(ctx, "user-1", 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "sig-005", page[0].TxSignature)
	assert.Equal(t, "sig-003", page[2].TxSignature)

	page, err = store.GetByUser(ctx, "user-1", 3, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "sig-002", page[0].TxSignature)
	assert.Equal(t, "sig-001", page[1].TxSignature)

	page, err = store.GetByUser(ctx, "user-1", 10, 99)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestTransactionStore_UpdateStatus(t *testing.T) {
	store := NewTransactionStore(nil)
	ctx := context.Background()

	rec := testRecord(1)
	rec.Status = domain.StatusPending
	require.NoError(t, store.Upsert(ctx, rec))

	require.NoError(t, store.UpdateStatus(ctx, rec.TxSignature, domain.StatusFailed, ptr(int64(512))))

	got, err := store.GetBySignature(ctx, rec.TxSignature)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	// The postgres store refreshes updated_at on status changes; the
	// memory store must agree.
	assert.Greater(t, got.UpdatedAt, rec.UpdatedAt)

	assert.ErrorIs(t, store.UpdateStatus(ctx, "no-such-sig", domain.StatusConfirmed, nil), storage.ErrNotFound)
}

func TestTransactionStore_BalancesByAddress(t *testing.T) {
	mints := NewMintStore()
	store := NewTransactionStore(mints)
	ctx := context.Background()

	const (
		mintA = "MintA111111111111111111111111111111111111111"
		alice = "Alice1111111111111111111111111111111111111"
		bob   = "Bob111111111111111111111111111111111111111"
	)

	require.NoError(t, mints.Insert(ctx, &domain.Mint{
		MintAddress:   mintA,
		Decimals:      6,
		MintAuthority: "Auth11111111111111111111111111111111111111",
		TxSignature:   "sig-create",
		CreatedAt:     1,
	}))

	mintRec := testRecord(1)
	mintRec.Amount = 1_000_000
	mintRec.MintAddress = mintA
	mintRec.ToAddress = ptr(alice)
	require.NoError(t, store.Upsert(ctx, mintRec))

	xfer := testRecord(2)
	xfer.Kind = domain.KindTransfer
	xfer.Amount = 400_000
	xfer.MintAddress = mintA
	xfer.FromAddress = ptr(alice)
	xfer.ToAddress = ptr(bob)
	require.NoError(t, store.Upsert(ctx, xfer))

	pending := testRecord(3)
	pending.Kind = domain.KindTransfer
	pending.Amount = 50_000
	pending.MintAddress = mintA
	pending.FromAddress = ptr(alice)
	pending.ToAddress = ptr(bob)
	pending.Status = domain.StatusPending
	require.NoError(t, store.Upsert(ctx, pending))

	aliceBalances, err := store.BalancesByAddress(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceBalances, 1)
	assert.Equal(t, mintA, aliceBalances[0].MintAddress)
	assert.Equal(t, uint8(6), aliceBalances[0].Decimals)
	assert.Equal(t, int64(600_000), aliceBalances[0].Balance)

	bobBalances, err := store.BalancesByAddress(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobBalances, 1)
	assert.Equal(t, int64(400_000), bobBalances[0].Balance)

	assert.Equal(t, int64(1_000_000), aliceBalances[0].Balance+bobBalances[0].Balance)
}
