// Package domain defines the core data model for token operations.
package domain

// Mint is a locally cached record of a token type created by this service.
// The on-chain mint account is the source of truth; this row is a cache.
// Corresponds to the mints table.
type Mint struct {
	MintAddress     string  // PRIMARY KEY, on-chain mint account address
	Decimals        uint8   // decimal precision, immutable
	MintAuthority   string  // authority allowed to issue supply
	FreezeAuthority *string // optional freeze authority (nullable)
	TxSignature     string  // creation transaction signature
	CreatedAt       int64   // Unix timestamp in milliseconds
}
