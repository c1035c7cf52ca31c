// Package submitter signs, broadcasts and confirms assembled transactions.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-token-service/internal/observability"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/token"
)

// Default timing values.
const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// ErrConfirmationTimeout is returned when the network did not report the
// transaction within the confirmation deadline. The transaction may still
// land: the safe recovery path is to re-query by signature, never resubmit.
var ErrConfirmationTimeout = errors.New("confirmation timed out")

// ErrTransactionFailed is returned when the network reports the transaction
// as failed.
var ErrTransactionFailed = errors.New("transaction failed on-chain")

// ConfirmationWaiter awaits a signature notification. Implemented by
// solana.WSClient.
type ConfirmationWaiter interface {
	WaitForSignature(ctx context.Context, signature, commitment string) (*solana.SignatureResult, error)
}

// Receipt is the confirmation result of a submitted transaction.
type Receipt struct {
	Signature string
	Slot      *int64
}

// Submitter signs with the fee payer plus operation-specific signers,
// broadcasts exactly once, and blocks until the network confirms or the
// deadline expires.
type Submitter struct {
	rpc            solana.RPCClient
	ws             ConfirmationWaiter // optional, poll fallback when nil
	payer          *token.Keypair
	commitment     string
	confirmTimeout time.Duration
	pollInterval   time.Duration
	logger         *log.Logger
}

// Options for creating a Submitter.
type Options struct {
	RPC            solana.RPCClient
	WS             ConfirmationWaiter
	Payer          *token.Keypair
	Commitment     string
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Logger         *log.Logger
}

// New creates a Submitter.
func New(opts Options) *Submitter {
	s := &Submitter{
		rpc:            opts.RPC,
		ws:             opts.WS,
		payer:          opts.Payer,
		commitment:     opts.Commitment,
		confirmTimeout: opts.ConfirmTimeout,
		pollInterval:   opts.PollInterval,
		logger:         opts.Logger,
	}
	if s.commitment == "" {
		s.commitment = solana.CommitmentConfirmed
	}
	if s.confirmTimeout <= 0 {
		s.confirmTimeout = DefaultConfirmTimeout
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Payer returns the fee payer address.
func (s *Submitter) Payer() token.Pubkey {
	return s.payer.Pub
}

// Submit signs the instruction sequence with the fee payer and any extra
// signers, fetches a fresh blockhash immediately before signing, broadcasts
// once, and waits for confirmation at the configured commitment.
func (s *Submitter) Submit(ctx context.Context, instructions []token.Instruction, extraSigners ...*token.Keypair) (*Receipt, error) {
	blockhash, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest blockhash: %w", err)
	}

	msg, err := token.CompileMessage(s.payer.Pub, instructions, blockhash.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("compile message: %w", err)
	}

	signers := append([]*token.Keypair{s.payer}, extraSigners...)
	wire, localSig, err := token.SignTransaction(msg, signers)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	signature, err := s.rpc.SendTransaction(ctx, wire)
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	if signature == "" {
		signature = localSig
	}
	observability.RecordTransactionSent()

	sent := time.Now()
	slot, err := s.awaitConfirmation(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("confirm %s: %w", signature, err)
	}
	observability.RecordConfirmation(time.Since(sent).Seconds())

	return &Receipt{Signature: signature, Slot: slot}, nil
}

// awaitConfirmation blocks until the signature reaches the configured
// commitment. Prefers the WebSocket subscription when available, falling
// back to a bounded status poll loop.
func (s *Submitter) awaitConfirmation(ctx context.Context, signature string) (*int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	if s.ws != nil {
		res, err := s.ws.WaitForSignature(ctx, signature, s.commitment)
		if err == nil {
			if res.Err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, res.Err)
			}
			slot := res.Slot
			return &slot, nil
		}
		if ctx.Err() != nil {
			return nil, ErrConfirmationTimeout
		}
		s.logger.Printf("websocket confirmation failed, falling back to polling: %v", err)
	}

	return s.pollConfirmation(ctx, signature)
}

// pollConfirmation polls getSignatureStatuses until the signature reaches
// the configured commitment or the deadline expires.
func (s *Submitter) pollConfirmation(ctx context.Context, signature string) (*int64, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := s.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err)
			}
			if s.reached(st.ConfirmationStatus) {
				slot := st.Slot
				return &slot, nil
			}
		}
		if err != nil {
			s.logger.Printf("signature status poll: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil, ErrConfirmationTimeout
		case <-ticker.C:
		}
	}
}

// reached reports whether the observed commitment satisfies the configured one.
func (s *Submitter) reached(observed string) bool {
	switch s.commitment {
	case solana.CommitmentProcessed:
		return observed != ""
	case solana.CommitmentConfirmed:
		return observed == solana.CommitmentConfirmed || observed == solana.CommitmentFinalized
	case solana.CommitmentFinalized:
		return observed == solana.CommitmentFinalized
	default:
		return observed == solana.CommitmentConfirmed || observed == solana.CommitmentFinalized
	}
}
