// Package orchestrator sequences validation, instruction assembly,
// submission and ledger reconciliation for each token operation.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"solana-token-service/internal/apperr"
	"solana-token-service/internal/domain"
	"solana-token-service/internal/ledger"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/storage"
	"solana-token-service/internal/submitter"
	"solana-token-service/internal/token"
)

// Orchestrator is the composition root for token operations.
// Flow per request: validate → assemble → submit → reconcile.
type Orchestrator struct {
	rpc    solana.RPCClient
	sub    *submitter.Submitter
	ledger *ledger.Reconciler
	events storage.OperationEventStore // optional analytics sink
	logger *log.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	RPC       solana.RPCClient
	Submitter *submitter.Submitter
	Ledger    *ledger.Reconciler
	Events    storage.OperationEventStore // nil disables analytics
	Logger    *log.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		rpc:    opts.RPC,
		sub:    opts.Submitter,
		ledger: opts.Ledger,
		events: opts.Events,
		logger: logger,
	}
}

// CreateMintRequest is a validated-on-entry create-mint call.
type CreateMintRequest struct {
	Decimals        uint8
	MintAuthority   string
	FreezeAuthority *string
}

// CreateMintResult reports the new mint and its creating transaction.
type CreateMintResult struct {
	MintAddress string
	TxSignature string
	Slot        *int64
}

// CreateMint allocates a fresh mint identity, funds its account at the
// rent-exemption minimum and initializes it with the requested authorities.
func (o *Orchestrator) CreateMint(ctx context.Context, req CreateMintRequest) (*CreateMintResult, error) {
	started := time.Now()

	authority, err := parseAddress("mint_authority", req.MintAuthority)
	if err != nil {
		return nil, err
	}
	freeze, err := parseOptionalAddress("freeze_authority", req.FreezeAuthority)
	if err != nil {
		return nil, err
	}

	rent, err := o.rpc.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "fetch rent-exemption minimum", err)
	}

	mintKeypair, err := token.NewKeypair()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate mint keypair", err)
	}

	instrs := token.AssembleCreateMint(o.sub.Payer(), mintKeypair.Pub, rent, token.CreateMintIntent{
		Decimals:        req.Decimals,
		MintAuthority:   authority,
		FreezeAuthority: freeze,
	})

	receipt, err := o.sub.Submit(ctx, instrs, mintKeypair)
	if err != nil {
		observability.RecordOperation("create_mint", "error", time.Since(started).Seconds())
		return nil, wrapSubmitError(err)
	}

	mint := &domain.Mint{
		MintAddress:     mintKeypair.Pub.String(),
		Decimals:        req.Decimals,
		MintAuthority:   req.MintAuthority,
		FreezeAuthority: req.FreezeAuthority,
		TxSignature:     receipt.Signature,
	}
	if err := o.ledger.RecordMint(ctx, mint); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "record mint", err)
	}

	observability.RecordOperation("create_mint", "ok", time.Since(started).Seconds())
	o.logger.Printf("created mint %s tx=%s", mint.MintAddress, receipt.Signature)

	return &CreateMintResult{
		MintAddress: mint.MintAddress,
		TxSignature: receipt.Signature,
		Slot:        receipt.Slot,
	}, nil
}

// MintTokensRequest is a validated-on-entry mint-to call.
type MintTokensRequest struct {
	UserID      string
	Mint        string
	Destination string
	Amount      uint64
	Authority   string
}

// OperationResult reports a confirmed state-changing operation.
type OperationResult struct {
	TxSignature string
	Slot        *int64
	Status      domain.TransactionStatus
}

// MintTokens credits amount base units to the destination owner's associated
// token account, creating it first when the existence probe comes up empty.
func (o *Orchestrator) MintTokens(ctx context.Context, req MintTokensRequest) (*OperationResult, error) {
	started := time.Now()

	if err := validateUserID(req.UserID); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", req.Mint)
	if err != nil {
		return nil, err
	}
	destination, err := parseAddress("destination", req.Destination)
	if err != nil {
		return nil, err
	}
	authority, err := parseAddress("authority", req.Authority)
	if err != nil {
		return nil, err
	}
	if err := validateAmount("amount", req.Amount); err != nil {
		return nil, err
	}
	if authority != o.sub.Payer() {
		return nil, apperr.New(apperr.KindUnauthorized, "mint authority key is not held by this service")
	}

	intent := token.MintToIntent{
		Mint:        mint,
		Destination: destination,
		Amount:      req.Amount,
		Authority:   authority,
	}

	ata, err := token.FindAssociatedTokenAddress(destination, mint)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "derive token account", err)
	}
	existing, err := o.probeAccounts(ctx, ata)
	if err != nil {
		return nil, err
	}

	plan, err := token.AssembleMintTo(o.sub.Payer(), intent, existing)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "assemble mint instructions", err)
	}

	receipt, err := o.sub.Submit(ctx, plan.Instructions)
	if err != nil {
		observability.RecordOperation("mint", "error", time.Since(started).Seconds())
		return nil, wrapSubmitError(err)
	}

	rec := &domain.TransactionRecord{
		UserID:      req.UserID,
		TxSignature: receipt.Signature,
		Kind:        domain.KindMint,
		Amount:      req.Amount,
		MintAddress: req.Mint,
		ToAddress:   &req.Destination,
		Status:      domain.StatusConfirmed,
		Slot:        receipt.Slot,
	}
	if err := o.ledger.Record(ctx, rec); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "record mint operation", err)
	}

	o.recordEvent(ctx, domain.KindMint, req.Mint, req.Amount, receipt, started)
	observability.RecordOperation("mint", "ok", time.Since(started).Seconds())
	o.logger.Printf("minted %d to %s tx=%s", req.Amount, req.Destination, receipt.Signature)

	return &OperationResult{
		TxSignature: receipt.Signature,
		Slot:        receipt.Slot,
		Status:      domain.StatusConfirmed,
	}, nil
}

// TransferRequest is a validated-on-entry transfer call.
type TransferRequest struct {
	UserID string
	Mint   string
	From   string
	To     string
	Amount uint64
	Owner  string
}

// Transfer moves amount base units between two owners' associated token
// accounts, creating the destination account when absent.
func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) (*OperationResult, error) {
	started := time.Now()

	if err := validateUserID(req.UserID); err != nil {
		return nil, err
	}
	mint, err := parseAddress("mint", req.Mint)
	if err != nil {
		return nil, err
	}
	from, err := parseAddress("from", req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	if err := validateAmount("amount", req.Amount); err != nil {
		return nil, err
	}
	if owner != o.sub.Payer() {
		return nil, apperr.New(apperr.KindUnauthorized, "source owner key is not held by this service")
	}

	intent := token.TransferIntent{
		Mint:   mint,
		From:   from,
		To:     to,
		Amount: req.Amount,
		Owner:  owner,
	}

	toATA, err := token.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "derive token account", err)
	}
	existing, err := o.probeAccounts(ctx, toATA)
	if err != nil {
		return nil, err
	}

	plan, err := token.AssembleTransfer(o.sub.Payer(), intent, existing)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "assemble transfer instructions", err)
	}

	receipt, err := o.sub.Submit(ctx, plan.Instructions)
	if err != nil {
		observability.RecordOperation("transfer", "error", time.Since(started).Seconds())
		return nil, wrapSubmitError(err)
	}

	rec := &domain.TransactionRecord{
		UserID:      req.UserID,
		TxSignature: receipt.Signature,
		Kind:        domain.KindTransfer,
		Amount:      req.Amount,
		MintAddress: req.Mint,
		FromAddress: &req.From,
		ToAddress:   &req.To,
		Status:      domain.StatusConfirmed,
		Slot:        receipt.Slot,
	}
	if err := o.ledger.Record(ctx, rec); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "record transfer operation", err)
	}

	o.recordEvent(ctx, domain.KindTransfer, req.Mint, req.Amount, receipt, started)
	observability.RecordOperation("transfer", "ok", time.Since(started).Seconds())
	o.logger.Printf("transferred %d from %s to %s tx=%s", req.Amount, req.From, req.To, receipt.Signature)

	return &OperationResult{
		TxSignature: receipt.Signature,
		Slot:        receipt.Slot,
		Status:      domain.StatusConfirmed,
	}, nil
}

// BalanceResult is a native-coin balance.
type BalanceResult struct {
	Address  string
	Lamports uint64
	SOL      float64
}

// NativeBalance reports the native balance of an address in lamports and SOL.
func (o *Orchestrator) NativeBalance(ctx context.Context, address string) (*BalanceResult, error) {
	pk, err := parseAddress("address", address)
	if err != nil {
		return nil, err
	}

	lamports, err := o.rpc.GetBalance(ctx, pk.String())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "fetch balance", err)
	}

	return &BalanceResult{
		Address:  pk.String(),
		Lamports: lamports,
		SOL:      float64(lamports) / 1e9,
	}, nil
}

// History pagination bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// History returns a user's ledger records, newest first.
func (o *Orchestrator) History(ctx context.Context, userID string, limit, offset int) ([]*domain.TransactionRecord, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "offset must not be negative")
	}

	records, err := o.ledger.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "query history", err)
	}
	return records, nil
}

// VerifyStatus re-checks a transaction's on-chain status and reconciles the
// stored row when it drifted. The recovery path for a timed-out submission.
func (o *Orchestrator) VerifyStatus(ctx context.Context, signature string) (*ledger.StatusResult, error) {
	sig, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}

	// The ledger classifies its own failures: RPC trouble is transport,
	// store trouble is storage. Re-wrapping here would mislabel a database
	// outage as a client-visible transport error.
	result, err := o.ledger.VerifyStatus(ctx, sig)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TokenBalances returns derived per-mint balances for an owner address.
func (o *Orchestrator) TokenBalances(ctx context.Context, address string) ([]*domain.TokenBalance, error) {
	pk, err := parseAddress("address", address)
	if err != nil {
		return nil, err
	}

	balances, err := o.ledger.Balances(ctx, pk.String())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "compute balances", err)
	}
	return balances, nil
}

// probeAccounts checks on-chain existence for the given accounts. A missing
// account is the bootstrap trigger, not an error; any other lookup failure
// propagates as a transport error.
func (o *Orchestrator) probeAccounts(ctx context.Context, accounts ...token.Pubkey) (token.AccountSet, error) {
	existing := make(token.AccountSet, len(accounts))
	for _, pk := range accounts {
		info, err := o.rpc.GetAccountInfo(ctx, pk.String())
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTransport, "probe account existence", err)
		}
		existing[pk] = info != nil
	}
	return existing, nil
}

// recordEvent writes one analytics row. Best-effort: a sink failure is
// logged and never affects the operation outcome.
func (o *Orchestrator) recordEvent(ctx context.Context, kind domain.TransactionKind, mint string, amount uint64, receipt *submitter.Receipt, started time.Time) {
	if o.events == nil {
		return
	}

	var slot int64
	if receipt.Slot != nil {
		slot = *receipt.Slot
	}
	event := &domain.OperationEvent{
		Timestamp:   time.Now().UnixMilli(),
		Kind:        kind,
		MintAddress: mint,
		Amount:      amount,
		Slot:        slot,
		TxSignature: receipt.Signature,
		DurationMs:  time.Since(started).Milliseconds(),
	}
	if err := o.events.Insert(ctx, event); err != nil {
		o.logger.Printf("operation event insert failed for %s: %v", receipt.Signature, err)
	}
}

// wrapSubmitError translates submitter failures into the error taxonomy.
func wrapSubmitError(err error) error {
	switch {
	case errors.Is(err, submitter.ErrConfirmationTimeout):
		observability.RecordConfirmationTimeout()
		return apperr.Wrap(apperr.KindTransport, "confirmation timed out; verify by signature before retrying", err)
	case errors.Is(err, submitter.ErrTransactionFailed):
		return apperr.Wrap(apperr.KindTransport, "transaction failed on-chain", err)
	default:
		return apperr.Wrap(apperr.KindTransport, "submit transaction", err)
	}
}
