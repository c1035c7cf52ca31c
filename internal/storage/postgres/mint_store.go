package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/storage"
)

// MintStore implements storage.MintStore using PostgreSQL.
type MintStore struct {
	pool *Pool
}

// NewMintStore creates a new MintStore.
func NewMintStore(pool *Pool) *MintStore {
	return &MintStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MintStore = (*MintStore)(nil)

// Insert adds a new mint. A duplicate mint_address is a no-op.
func (s *MintStore) Insert(ctx context.Context, m *domain.Mint) (err error) {
	defer observe("mint_insert", time.Now(), &err)

	query := `
		INSERT INTO mints (
			mint_address, decimals, mint_authority, freeze_authority, tx_signature, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (mint_address) DO NOTHING
	`

	_, err = s.pool.Exec(ctx, query,
		m.MintAddress, int16(m.Decimals), m.MintAuthority, m.FreezeAuthority, m.TxSignature, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mint: %w", err)
	}
	return nil
}

// GetByAddress retrieves a mint by its address. Returns ErrNotFound if not exists.
func (s *MintStore) GetByAddress(ctx context.Context, mintAddress string) (_ *domain.Mint, err error) {
	defer observe("mint_get_by_address", time.Now(), &err)

	query := `
		SELECT mint_address, decimals, mint_authority, freeze_authority, tx_signature, created_at
		FROM mints
		WHERE mint_address = $1
	`

	var m domain.Mint
	var decimals int16
	err = s.pool.QueryRow(ctx, query, mintAddress).Scan(
		&m.MintAddress, &decimals, &m.MintAuthority, &m.FreezeAuthority, &m.TxSignature, &m.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get mint by address: %w", err)
	}
	m.Decimals = uint8(decimals)
	return &m, nil
}
