package idhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRecordID_Deterministic(t *testing.T) {
	a := ComputeRecordID("mint", "5VERYLongBase58Signature111")
	b := ComputeRecordID("mint", "5VERYLongBase58Signature111")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeRecordID_DiffersByInput(t *testing.T) {
	base := ComputeRecordID("mint", "sig1")

	assert.NotEqual(t, base, ComputeRecordID("transfer", "sig1"))
	assert.NotEqual(t, base, ComputeRecordID("mint", "sig2"))
}
