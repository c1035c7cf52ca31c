// Package token implements SPL token primitives: address parsing, associated
// token account derivation, instruction encoding and transaction assembly.
package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses.
const (
	SystemProgramAddress          = "11111111111111111111111111111111"
	TokenProgramAddress           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramAddress = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	SysvarRentAddress             = "SysvarRent111111111111111111111111111111111"
)

// MintAccountSize is the byte size of an SPL token mint account.
const MintAccountSize = 82

// Pubkey is a 32-byte Solana account address.
type Pubkey [32]byte

// ParsePubkey parses a base58-encoded account address.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	if s == "" {
		return pk, fmt.Errorf("empty address")
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode address: %w", err)
	}
	if len(decoded) != 32 {
		return pk, fmt.Errorf("address must be 32 bytes, got %d", len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// MustPubkey parses a base58 address and panics on failure.
// For package-level well-known addresses only.
func MustPubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(fmt.Sprintf("invalid pubkey %q: %v", s, err))
	}
	return pk
}

// String returns the base58 encoding of the address.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Well-known program pubkeys, parsed once.
var (
	SystemProgramID          = MustPubkey(SystemProgramAddress)
	TokenProgramID           = MustPubkey(TokenProgramAddress)
	AssociatedTokenProgramID = MustPubkey(AssociatedTokenProgramAddress)
	SysvarRentID             = MustPubkey(SysvarRentAddress)
)

// Keypair is an ed25519 signing key with its account address.
type Keypair struct {
	Pub  Pubkey
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	var pk Pubkey
	copy(pk[:], pub)
	return &Keypair{Pub: pk, priv: priv}, nil
}

// KeypairFromBase58 parses a base58-encoded private key. Accepts the 64-byte
// seed+pubkey form used by Solana tooling and the raw 32-byte seed form.
func KeypairFromBase58(s string) (*Keypair, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(decoded) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(decoded)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(decoded)
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(decoded))
	}

	var pk Pubkey
	copy(pk[:], priv.Public().(ed25519.PublicKey))
	return &Keypair{Pub: pk, priv: priv}, nil
}

// Sign signs a message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// FindAssociatedTokenAddress derives the deterministic token holding account
// for (owner, mint) under the associated token account program.
func FindAssociatedTokenAddress(owner, mint Pubkey) (Pubkey, error) {
	seeds := [][]byte{owner[:], TokenProgramID[:], mint[:]}
	return findProgramAddress(seeds, AssociatedTokenProgramID)
}

// findProgramAddress derives a Program Derived Address:
// append a bump seed, the program ID and the PDA marker to the seeds,
// SHA256, and take the first bump whose hash is off the ed25519 curve.
func findProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID[:]...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			var pk Pubkey
			copy(pk[:], hash[:])
			return pk, nil
		}
	}
	return Pubkey{}, fmt.Errorf("no viable bump seed found")
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ParseSignature validates a base58-encoded 64-byte transaction signature.
func ParseSignature(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty signature")
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(decoded) != 64 {
		return "", fmt.Errorf("signature must be 64 bytes, got %d", len(decoded))
	}
	return s, nil
}
