package ledger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-service/internal/apperr"
	"solana-token-service/internal/domain"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/solana/stub"
	"solana-token-service/internal/storage/memory"
)

func newTestReconciler(t *testing.T) (*Reconciler, *stub.RPCClient, *memory.TransactionStore) {
	t.Helper()
	mints := memory.NewMintStore()
	txs := memory.NewTransactionStore(mints)
	rpc := stub.NewRPCClient()
	return New(mints, txs, rpc, log.New(io.Discard, "", 0)), rpc, txs
}

func testSignature(fill byte) string {
	return base58.Encode(bytes.Repeat([]byte{fill}, 64))
}

func ptr[T any](v T) *T { return &v }

func TestRecord_FillsDerivedFields(t *testing.T) {
	rec, _, txs := newTestReconciler(t)
	ctx := context.Background()

	sig := testSignature(1)
	record := &domain.TransactionRecord{
		UserID:      "user-1",
		TxSignature: sig,
		Kind:        domain.KindMint,
		Amount:      1_000_000,
		MintAddress: "Mint111",
		ToAddress:   ptr("Alice111"),
		Status:      domain.StatusConfirmed,
	}
	require.NoError(t, rec.Record(ctx, record))

	stored, err := txs.GetBySignature(ctx, sig)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.RecordID)
	assert.NotZero(t, stored.CreatedAt)
	assert.NotZero(t, stored.UpdatedAt)
}

func TestRecord_EmptySignature(t *testing.T) {
	rec, _, _ := newTestReconciler(t)
	err := rec.Record(context.Background(), &domain.TransactionRecord{
		UserID: "user-1",
		Kind:   domain.KindMint,
	})
	assert.Error(t, err)
}

func TestRecord_SameSignatureIsIdempotent(t *testing.T) {
	rec, _, txs := newTestReconciler(t)
	ctx := context.Background()

	sig := testSignature(2)
	first := &domain.TransactionRecord{
		UserID:      "user-1",
		TxSignature: sig,
		Kind:        domain.KindTransfer,
		Amount:      500,
		MintAddress: "Mint111",
		Status:      domain.StatusPending,
	}
	require.NoError(t, rec.Record(ctx, first))

	// Re-record with different caller fields; only status and slot move.
	second := &domain.TransactionRecord{
		UserID:      "someone-else",
		TxSignature: sig,
		Kind:        domain.KindTransfer,
		Amount:      999_999,
		MintAddress: "Mint111",
		Status:      domain.StatusConfirmed,
		Slot:        ptr(int64(1200)),
	}
	require.NoError(t, rec.Record(ctx, second))

	records, err := rec.History(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(500), records[0].Amount)
	assert.Equal(t, domain.StatusConfirmed, records[0].Status)
	require.NotNil(t, records[0].Slot)
	assert.Equal(t, int64(1200), *records[0].Slot)

	stored, err := txs.GetBySignature(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)
}

func TestRecordMint_DuplicateIsNoOp(t *testing.T) {
	mints := memory.NewMintStore()
	txs := memory.NewTransactionStore(mints)
	rec := New(mints, txs, stub.NewRPCClient(), log.New(io.Discard, "", 0))
	ctx := context.Background()

	m := &domain.Mint{
		MintAddress:   "Mint111",
		Decimals:      6,
		MintAuthority: "Auth111",
		TxSignature:   testSignature(3),
	}
	require.NoError(t, rec.RecordMint(ctx, m))
	require.NoError(t, rec.RecordMint(ctx, &domain.Mint{
		MintAddress:   "Mint111",
		Decimals:      2,
		MintAuthority: "Other111",
		TxSignature:   testSignature(4),
	}))

	stored, err := mints.GetByAddress(ctx, "Mint111")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), stored.Decimals)
	assert.NotZero(t, stored.CreatedAt)
}

func TestBalances_OnlyConfirmedRecordsCount(t *testing.T) {
	rec, _, _ := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, &domain.TransactionRecord{
		UserID:      "user-1",
		TxSignature: testSignature(5),
		Kind:        domain.KindMint,
		Amount:      1_000_000,
		MintAddress: "Mint111",
		ToAddress:   ptr("Alice111"),
		Status:      domain.StatusConfirmed,
	}))
	require.NoError(t, rec.Record(ctx, &domain.TransactionRecord{
		UserID:      "user-1",
		TxSignature: testSignature(6),
		Kind:        domain.KindTransfer,
		Amount:      400_000,
		MintAddress: "Mint111",
		FromAddress: ptr("Alice111"),
		ToAddress:   ptr("Bob11111"),
		Status:      domain.StatusConfirmed,
	}))
	require.NoError(t, rec.Record(ctx, &domain.TransactionRecord{
		UserID:      "user-1",
		TxSignature: testSignature(7),
		Kind:        domain.KindTransfer,
		Amount:      50_000,
		MintAddress: "Mint111",
		FromAddress: ptr("Alice111"),
		ToAddress:   ptr("Bob11111"),
		Status:      domain.StatusPending,
	}))

	alice, err := rec.Balances(ctx, "Alice111")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, int64(600_000), alice[0].Balance)

	bob, err := rec.Balances(ctx, "Bob11111")
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, int64(400_000), bob[0].Balance)
}

func TestVerifyStatus_UnknownEverywhere(t *testing.T) {
	rec, _, txs := newTestReconciler(t)
	ctx := context.Background()

	sig := testSignature(8)
	res, err := rec.VerifyStatus(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotFound, res.Status)
	assert.Nil(t, res.Slot)

	// Nothing was written for the unknown signature.
	_, err = txs.GetBySignature(ctx, sig)
	assert.Error(t, err)
}

func TestVerifyStatus_ReconcilesStoredStatus(t *testing.T) {
	rec, rpc, txs := newTestReconciler(t)
	ctx := context.Background()

	sig := testSignature(9)
	require.NoError(t, rec.Record(ctx, &domain.TransactionRecord{
		UserID:      "user-1",
		TxSignature: sig,
		Kind:        domain.KindMint,
		Amount:      100,
		MintAddress: "Mint111",
		Status:      domain.StatusPending,
	}))

	rpc.SetStatus(sig, &solana.SignatureStatus{
		Slot:               1500,
		ConfirmationStatus: solana.CommitmentConfirmed,
	})

	res, err := rec.VerifyStatus(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, res.Status)
	require.NotNil(t, res.Slot)
	assert.Equal(t, int64(1500), *res.Slot)

	stored, err := txs.GetBySignature(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	require.NotNil(t, stored.Slot)
	assert.Equal(t, int64(1500), *stored.Slot)
}

type brokenTxStore struct {
	*memory.TransactionStore
	err error
}

func (s *brokenTxStore) GetBySignature(ctx context.Context, sig string) (*domain.TransactionRecord, error) {
	return nil, s.err
}

type brokenRPC struct {
	*stub.RPCClient
	err error
}

func (c *brokenRPC) GetSignatureStatuses(ctx context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
	return nil, c.err
}

// A database outage during verification must surface as a storage error,
// not a transport one, and must not leak driver detail to clients.
func TestVerifyStatus_StoreFailureIsStorageError(t *testing.T) {
	mints := memory.NewMintStore()
	txs := &brokenTxStore{
		TransactionStore: memory.NewTransactionStore(mints),
		err:              errors.New("failed to connect to `host=10.0.0.5`: connection refused"),
	}
	rec := New(mints, txs, stub.NewRPCClient(), log.New(io.Discard, "", 0))

	_, err := rec.VerifyStatus(context.Background(), testSignature(11))
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	assert.Equal(t, "storage error", apperr.PublicMessage(err))
}

func TestVerifyStatus_RPCFailureIsTransportError(t *testing.T) {
	mints := memory.NewMintStore()
	rpc := &brokenRPC{
		RPCClient: stub.NewRPCClient(),
		err:       errors.New("connection reset by peer"),
	}
	rec := New(mints, memory.NewTransactionStore(mints), rpc, log.New(io.Discard, "", 0))

	_, err := rec.VerifyStatus(context.Background(), testSignature(12))
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestVerifyStatus_FailureObserved(t *testing.T) {
	rec, rpc, txs := newTestReconciler(t)
	ctx := context.Background()

	sig := testSignature(10)
	require.NoError(t, rec.Record(ctx, &domain.TransactionRecord{
		UserID:      "user-1",
		TxSignature: sig,
		Kind:        domain.KindTransfer,
		Amount:      100,
		MintAddress: "Mint111",
		Status:      domain.StatusConfirmed,
		Slot:        ptr(int64(1000)),
	}))

	rpc.SetStatus(sig, &solana.SignatureStatus{
		Slot: 1000,
		Err:  map[string]interface{}{"InstructionError": []interface{}{0.0, "Custom"}},
	})

	res, err := rec.VerifyStatus(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, res.Status)

	stored, err := txs.GetBySignature(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}
