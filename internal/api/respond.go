package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"solana-token-service/internal/apperr"
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *string     `json:"error"`
}

// maxBodyBytes bounds request bodies; every request here is a small JSON object.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// writeError maps the error taxonomy onto HTTP statuses. Storage and
// internal detail stays out of responses; callers get the public message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Printf("request failed: %v", err)
	}

	msg := apperr.PublicMessage(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &msg})
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, format string, args ...interface{}) {
	h.writeError(w, apperr.Newf(apperr.KindInvalidInput, format, args...))
}

func decodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
