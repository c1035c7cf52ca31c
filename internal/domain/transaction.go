package domain

// TransactionKind classifies a ledger operation.
type TransactionKind string

const (
	KindMint     TransactionKind = "mint"
	KindTransfer TransactionKind = "transfer"
)

// TransactionStatus is the observed on-chain status of a submitted transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFailed    TransactionStatus = "failed"
	StatusNotFound  TransactionStatus = "not_found"
)

// TransactionRecord is one ledger row per logical token operation.
// Keyed uniquely by the on-chain transaction signature: re-recording the
// same signature updates status/slot only, never duplicates.
// Corresponds to the ledger_transactions table.
type TransactionRecord struct {
	RecordID    string            // PRIMARY KEY, deterministic hash of signature
	UserID      string            // requesting user
	TxSignature string            // UNIQUE, on-chain transaction signature
	Kind        TransactionKind   // mint | transfer
	Amount      uint64            // integer base units
	MintAddress string            // token mint
	FromAddress *string           // transfer source owner (nullable)
	ToAddress   *string           // destination owner (nullable)
	Status      TransactionStatus // pending | confirmed | failed | not_found
	Slot        *int64            // confirming slot (nullable)
	Metadata    map[string]string // free-form operation metadata
	CreatedAt   int64             // Unix timestamp in milliseconds
	UpdatedAt   int64             // Unix timestamp in milliseconds
}
