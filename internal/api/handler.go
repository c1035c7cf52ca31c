// Package api exposes the token operations over a JSON HTTP surface.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"solana-token-service/internal/domain"
	"solana-token-service/internal/observability"
	"solana-token-service/internal/orchestrator"
)

// Handler bundles the HTTP endpoints for the token service.
type Handler struct {
	orch   *orchestrator.Orchestrator
	logger *log.Logger
}

// NewHandler returns a mux exposing the REST API.
func NewHandler(orch *orchestrator.Orchestrator, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	h := &Handler{orch: orch, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.instrument("/health", h.health))
	mux.HandleFunc("GET /balance", h.instrument("/balance", h.balance))
	mux.HandleFunc("POST /mint/create", h.instrument("/mint/create", h.createMint))
	mux.HandleFunc("POST /mint/tokens", h.instrument("/mint/tokens", h.mintTokens))
	mux.HandleFunc("POST /transfer", h.instrument("/transfer", h.transfer))
	mux.HandleFunc("GET /transactions", h.instrument("/transactions", h.transactions))
	mux.HandleFunc("GET /verify", h.instrument("/verify", h.verify))
	mux.HandleFunc("GET /tokens/balances", h.instrument("/tokens/balances", h.tokenBalances))
	mux.Handle("GET /metrics", observability.Handler())
	return mux
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) instrument(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		observability.RecordHTTPRequest(route, strconv.Itoa(rec.status), time.Since(started).Seconds())
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type balanceResponse struct {
	Address         string  `json:"address"`
	BalanceLamports uint64  `json:"balance_lamports"`
	BalanceSOL      float64 `json:"balance_sol"`
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	res, err := h.orch.NativeBalance(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		Address:         res.Address,
		BalanceLamports: res.Lamports,
		BalanceSOL:      res.SOL,
	})
}

type createMintRequest struct {
	Decimals        uint8   `json:"decimals"`
	MintAuthority   string  `json:"mint_authority"`
	FreezeAuthority *string `json:"freeze_authority"`
}

type createMintResponse struct {
	MintAddress     string  `json:"mint_address"`
	Signature       string  `json:"signature"`
	Decimals        uint8   `json:"decimals"`
	MintAuthority   string  `json:"mint_authority"`
	FreezeAuthority *string `json:"freeze_authority"`
}

func (h *Handler) createMint(w http.ResponseWriter, r *http.Request) {
	var payload createMintRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeBadRequest(w, "invalid request body: %v", err)
		return
	}

	res, err := h.orch.CreateMint(r.Context(), orchestrator.CreateMintRequest{
		Decimals:        payload.Decimals,
		MintAuthority:   payload.MintAuthority,
		FreezeAuthority: payload.FreezeAuthority,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createMintResponse{
		MintAddress:     res.MintAddress,
		Signature:       res.TxSignature,
		Decimals:        payload.Decimals,
		MintAuthority:   payload.MintAuthority,
		FreezeAuthority: payload.FreezeAuthority,
	})
}

type mintTokensRequest struct {
	UserID             string `json:"user_id"`
	MintAddress        string `json:"mint_address"`
	DestinationAddress string `json:"destination_address"`
	Amount             uint64 `json:"amount"`
	Authority          string `json:"authority"`
}

type transactionResponse struct {
	Signature string `json:"signature"`
	Slot      *int64 `json:"slot"`
	Status    string `json:"status"`
}

func (h *Handler) mintTokens(w http.ResponseWriter, r *http.Request) {
	var payload mintTokensRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeBadRequest(w, "invalid request body: %v", err)
		return
	}

	res, err := h.orch.MintTokens(r.Context(), orchestrator.MintTokensRequest{
		UserID:      payload.UserID,
		Mint:        payload.MintAddress,
		Destination: payload.DestinationAddress,
		Amount:      payload.Amount,
		Authority:   payload.Authority,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{
		Signature: res.TxSignature,
		Slot:      res.Slot,
		Status:    string(res.Status),
	})
}

type transferRequest struct {
	UserID      string `json:"user_id"`
	MintAddress string `json:"mint_address"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Amount      uint64 `json:"amount"`
	Owner       string `json:"owner"`
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var payload transferRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeBadRequest(w, "invalid request body: %v", err)
		return
	}

	res, err := h.orch.Transfer(r.Context(), orchestrator.TransferRequest{
		UserID: payload.UserID,
		Mint:   payload.MintAddress,
		From:   payload.FromAddress,
		To:     payload.ToAddress,
		Amount: payload.Amount,
		Owner:  payload.Owner,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{
		Signature: res.TxSignature,
		Slot:      res.Slot,
		Status:    string(res.Status),
	})
}

type transactionRecordResponse struct {
	RecordID    string            `json:"record_id"`
	UserID      string            `json:"user_id"`
	Signature   string            `json:"signature"`
	Type        string            `json:"transaction_type"`
	Amount      uint64            `json:"amount"`
	MintAddress string            `json:"mint_address"`
	FromAddress *string           `json:"from_address"`
	ToAddress   *string           `json:"to_address"`
	Status      string            `json:"status"`
	Slot        *int64            `json:"slot"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   int64             `json:"created_at"`
	UpdatedAt   int64             `json:"updated_at"`
}

func toRecordResponse(rec *domain.TransactionRecord) transactionRecordResponse {
	return transactionRecordResponse{
		RecordID:    rec.RecordID,
		UserID:      rec.UserID,
		Signature:   rec.TxSignature,
		Type:        string(rec.Kind),
		Amount:      rec.Amount,
		MintAddress: rec.MintAddress,
		FromAddress: rec.FromAddress,
		ToAddress:   rec.ToAddress,
		Status:      string(rec.Status),
		Slot:        rec.Slot,
		Metadata:    rec.Metadata,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseIntParam(q.Get("limit"), 0)
	if err != nil {
		h.writeBadRequest(w, "limit must be an integer")
		return
	}
	offset, err := parseIntParam(q.Get("offset"), 0)
	if err != nil {
		h.writeBadRequest(w, "offset must be an integer")
		return
	}

	records, err := h.orch.History(r.Context(), q.Get("user_id"), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]transactionRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type verifyResponse struct {
	Signature string `json:"signature"`
	Status    string `json:"status"`
	Slot      *int64 `json:"slot"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	res, err := h.orch.VerifyStatus(r.Context(), r.URL.Query().Get("signature"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Signature: res.Signature,
		Status:    string(res.Status),
		Slot:      res.Slot,
	})
}

type tokenBalanceResponse struct {
	MintAddress string `json:"mint_address"`
	Decimals    uint8  `json:"decimals"`
	Balance     int64  `json:"balance"`
}

func (h *Handler) tokenBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.orch.TokenBalances(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]tokenBalanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, tokenBalanceResponse{
			MintAddress: b.MintAddress,
			Decimals:    b.Decimals,
			Balance:     b.Balance,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseIntParam(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
