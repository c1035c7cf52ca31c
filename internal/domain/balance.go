package domain

// TokenBalance is a derived per-(address, mint) balance. Never stored:
// always recomputed from confirmed TransactionRecords so the ledger cannot
// drift from the reported balance. A transfer contributes two signed
// postings: credit to_address, debit from_address.
type TokenBalance struct {
	MintAddress string
	Decimals    uint8
	Balance     int64 // signed base units; negative only if the ledger is incomplete
}

// OperationEvent is one analytics row per completed token operation.
// Written best-effort to the analytics store; failures never affect the
// operation outcome. Corresponds to the operation_events table.
type OperationEvent struct {
	Timestamp   int64 // Unix timestamp in milliseconds
	Kind        TransactionKind
	MintAddress string
	Amount      uint64
	Slot        int64
	TxSignature string
	DurationMs  int64 // end-to-end operation latency
}
