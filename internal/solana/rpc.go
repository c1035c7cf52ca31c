package solana

import "context"

// RPCClient defines the Solana RPC surface consumed by token operations.
type RPCClient interface {
	// GetBalance retrieves the native balance of an account in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns nil without error when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetLatestBlockhash retrieves the most recent blockhash for signing.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// GetMinimumBalanceForRentExemption retrieves the lamports required for
	// an account of the given size to be rent exempt.
	GetMinimumBalanceForRentExemption(ctx context.Context, size int) (uint64, error)

	// SendTransaction broadcasts a signed wire-format transaction exactly
	// once and returns its signature. Never retried: a resubmission after a
	// broadcast that actually landed risks a duplicate effect.
	SendTransaction(ctx context.Context, wire []byte) (string, error)

	// GetSignatureStatuses retrieves the current status of each signature.
	// Entries are nil for signatures the network does not know.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}
