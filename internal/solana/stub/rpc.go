// Package stub provides an in-memory solana.RPCClient for testing.
package stub

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/mr-tron/base58"

	"solana-token-service/internal/solana"
)

// RPCClient implements solana.RPCClient for testing. All state is
// programmable and every call is counted so tests can assert that no
// network interaction took place.
type RPCClient struct {
	mu sync.Mutex

	// Programmable state
	Balances     map[string]uint64
	Accounts     map[string]*solana.AccountInfo
	Statuses     map[string]*solana.SignatureStatus
	Blockhash    string
	RentLamports uint64
	Slot         int64

	// NextSignatures are returned by SendTransaction in order; when
	// exhausted a deterministic signature is generated.
	NextSignatures []string

	// SendErr, when set, is returned by SendTransaction.
	SendErr error

	// SentTransactions records every broadcast wire payload.
	SentTransactions [][]byte

	// Calls counts invocations per method.
	Calls map[string]int

	sendSeq int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:     make(map[string]uint64),
		Accounts:     make(map[string]*solana.AccountInfo),
		Statuses:     make(map[string]*solana.SignatureStatus),
		Blockhash:    "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		RentLamports: 1461600,
		Slot:         1000,
		Calls:        make(map[string]int),
	}
}

func (c *RPCClient) record(method string) {
	c.Calls[method]++
}

// CallCount returns the total number of RPC calls made.
func (c *RPCClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.Calls {
		total += n
	}
	return total
}

// GetBalance returns the programmed balance for pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getBalance")
	return c.Balances[pubkey], nil
}

// GetAccountInfo returns the programmed account, or nil when absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getAccountInfo")
	return c.Accounts[pubkey], nil
}

// GetLatestBlockhash returns the programmed blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.LatestBlockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getLatestBlockhash")
	return &solana.LatestBlockhash{
		Blockhash:            c.Blockhash,
		LastValidBlockHeight: c.Slot + 150,
	}, nil
}

// GetMinimumBalanceForRentExemption returns the programmed rent minimum.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, _ int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getMinimumBalanceForRentExemption")
	return c.RentLamports, nil
}

// SendTransaction records the payload and returns the next signature.
// The signature is immediately marked confirmed so poll waits resolve.
func (c *RPCClient) SendTransaction(_ context.Context, wire []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("sendTransaction")

	if c.SendErr != nil {
		return "", c.SendErr
	}

	c.SentTransactions = append(c.SentTransactions, append([]byte(nil), wire...))

	var sig string
	if c.sendSeq < len(c.NextSignatures) {
		sig = c.NextSignatures[c.sendSeq]
	} else {
		// Deterministic but shaped like a real signature: base58 of 64 bytes.
		raw := make([]byte, 64)
		binary.BigEndian.PutUint64(raw[56:], uint64(c.sendSeq+1))
		sig = base58.Encode(raw)
	}
	c.sendSeq++

	c.Statuses[sig] = &solana.SignatureStatus{
		Slot:               c.Slot,
		ConfirmationStatus: solana.CommitmentConfirmed,
	}

	return sig, nil
}

// GetSignatureStatuses returns programmed statuses, nil for unknown signatures.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getSignatureStatuses")

	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		statuses[i] = c.Statuses[sig]
	}
	return statuses, nil
}

// GetSlot returns the programmed slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("getSlot")
	return c.Slot, nil
}

// AddAccount marks an account as existing on-chain.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if info == nil {
		info = &solana.AccountInfo{Lamports: 2039280, Owner: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"}
	}
	c.Accounts[pubkey] = info
}

// SetStatus programs the status returned for a signature.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = status
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)
