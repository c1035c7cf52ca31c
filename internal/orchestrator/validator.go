package orchestrator

import (
	"solana-token-service/internal/apperr"
	"solana-token-service/internal/token"
)

// Request validation happens before any chain or storage interaction, so a
// malformed request costs no RPC call. Each failure names the offending field.

// parseAddress parses a required base58 account address.
func parseAddress(field, value string) (token.Pubkey, error) {
	if value == "" {
		return token.Pubkey{}, apperr.Newf(apperr.KindInvalidInput, "%s is required", field)
	}
	pk, err := token.ParsePubkey(value)
	if err != nil {
		return token.Pubkey{}, apperr.Newf(apperr.KindInvalidInput, "%s is not a valid address: %s", field, value)
	}
	return pk, nil
}

// parseOptionalAddress parses an address that may be absent.
func parseOptionalAddress(field string, value *string) (*token.Pubkey, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	pk, err := parseAddress(field, *value)
	if err != nil {
		return nil, err
	}
	return &pk, nil
}

// validateAmount rejects zero amounts. Amounts are unsigned base units;
// negative and non-numeric values never make it past JSON decoding.
func validateAmount(field string, amount uint64) error {
	if amount == 0 {
		return apperr.Newf(apperr.KindInvalidInput, "%s must be greater than zero", field)
	}
	return nil
}

// validateUserID rejects empty user identifiers.
func validateUserID(userID string) error {
	if userID == "" {
		return apperr.New(apperr.KindInvalidInput, "user_id is required")
	}
	return nil
}

// parseSignature validates a base58 transaction signature.
func parseSignature(value string) (string, error) {
	if value == "" {
		return "", apperr.New(apperr.KindInvalidInput, "signature is required")
	}
	sig, err := token.ParseSignature(value)
	if err != nil {
		return "", apperr.Newf(apperr.KindInvalidInput, "signature is not valid: %s", value)
	}
	return sig, nil
}
