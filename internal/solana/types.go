package solana

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// LatestBlockhash is the network-recency token bound into a transaction.
type LatestBlockhash struct {
	Blockhash            string
	LastValidBlockHeight int64
}

// SignatureStatus is the processing status of a submitted transaction.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int
	ConfirmationStatus string      // processed | confirmed | finalized
	Err                interface{} // non-nil when the transaction failed
}

// Commitment levels for confirmation waits.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)
