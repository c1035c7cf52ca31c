package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(KindInvalidInput, "invalid mint address")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, KindInvalidInput, KindOf(wrapped))

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindTransport, http.StatusBadRequest},
		{KindStorage, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.kind))
	}
}

func TestPublicMessage_WithholdsStorageDetail(t *testing.T) {
	cause := errors.New(`pq: relation "ledger_transactions" does not exist`)
	err := Wrap(KindStorage, "record transaction", cause)

	msg := PublicMessage(err)
	assert.Equal(t, "storage error", msg)
	assert.NotContains(t, msg, "ledger_transactions")
}

func TestPublicMessage_ReturnsTransportDetail(t *testing.T) {
	cause := errors.New("insufficient funds for rent")
	err := Wrap(KindTransport, "send transaction", cause)

	assert.Contains(t, PublicMessage(err), "insufficient funds")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindInternal, "op", cause)
	assert.True(t, errors.Is(err, cause))
}
