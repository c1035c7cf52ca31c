package token

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlockhash() string {
	return base58.Encode(bytes.Repeat([]byte{0x11}, 32))
}

func TestCompileMessage_KeyOrdering(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	source := testPubkey(t)
	dest := testPubkey(t)

	instr := NewTransferInstruction(source, dest, payer.Pub, 100)
	msg, err := CompileMessage(payer.Pub, []Instruction{instr}, testBlockhash())
	require.NoError(t, err)

	// Fee payer leads, then writable nonsigners, then the program ID.
	require.Len(t, msg.keys, 4)
	assert.Equal(t, payer.Pub, msg.keys[0].pubkey)
	assert.Equal(t, source, msg.keys[1].pubkey)
	assert.Equal(t, dest, msg.keys[2].pubkey)
	assert.Equal(t, TokenProgramID, msg.keys[3].pubkey)

	assert.Equal(t, 1, msg.numRequired)
	assert.Equal(t, 0, msg.numReadonlySig)
	assert.Equal(t, 1, msg.numReadonlyUns)
}

func TestCompileMessage_MergesSignerFlags(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	mint, err := NewKeypair()
	require.NoError(t, err)

	// Mint appears as signer-writable in creation and writable in init;
	// the merged key must keep the signer flag.
	instrs := AssembleCreateMint(payer.Pub, mint.Pub, 1461600, CreateMintIntent{
		Decimals:      9,
		MintAuthority: payer.Pub,
	})
	msg, err := CompileMessage(payer.Pub, instrs, testBlockhash())
	require.NoError(t, err)

	assert.Equal(t, 2, msg.numRequired)
	assert.Equal(t, payer.Pub, msg.keys[0].pubkey)
	assert.Equal(t, mint.Pub, msg.keys[1].pubkey)
	assert.True(t, msg.keys[1].isSigner)
	assert.True(t, msg.keys[1].isWritable)
}

func TestCompileMessage_Invalid(t *testing.T) {
	payer := testPubkey(t)

	_, err := CompileMessage(payer, nil, testBlockhash())
	assert.Error(t, err)

	instr := NewTransferInstruction(testPubkey(t), testPubkey(t), payer, 1)
	_, err = CompileMessage(payer, []Instruction{instr}, "short")
	assert.Error(t, err)
}

func TestSerialize_Layout(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	source := testPubkey(t)
	dest := testPubkey(t)

	instr := NewTransferInstruction(source, dest, payer.Pub, 100)
	msg, err := CompileMessage(payer.Pub, []Instruction{instr}, testBlockhash())
	require.NoError(t, err)

	data, err := msg.Serialize()
	require.NoError(t, err)

	// header(3) + keyCount(1) + 4*32 + blockhash(32) +
	// instrCount(1) + progIdx(1) + accCount(1) + 3 indices + dataLen(1) + data(9)
	assert.Len(t, data, 3+1+128+32+1+1+1+3+1+9)

	assert.Equal(t, byte(1), data[0]) // required signatures
	assert.Equal(t, byte(0), data[1])
	assert.Equal(t, byte(1), data[2])
	assert.Equal(t, byte(4), data[3]) // account count
	assert.Equal(t, payer.Pub[:], data[4:36])
}

func TestSignTransaction(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	source := testPubkey(t)
	dest := testPubkey(t)

	instr := NewTransferInstruction(source, dest, payer.Pub, 100)
	msg, err := CompileMessage(payer.Pub, []Instruction{instr}, testBlockhash())
	require.NoError(t, err)

	wire, sig, err := SignTransaction(msg, []*Keypair{payer})
	require.NoError(t, err)

	serialized, err := msg.Serialize()
	require.NoError(t, err)

	// Wire format: signature count, signatures, then the message bytes.
	require.Len(t, wire, 1+64+len(serialized))
	assert.Equal(t, byte(1), wire[0])
	assert.Equal(t, serialized, wire[1+64:])

	sigBytes, err := base58.Decode(sig)
	require.NoError(t, err)
	assert.Equal(t, wire[1:65], sigBytes)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(payer.Pub[:]), serialized, sigBytes))
}

func TestSignTransaction_MissingSigner(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	mint, err := NewKeypair()
	require.NoError(t, err)

	instrs := AssembleCreateMint(payer.Pub, mint.Pub, 1461600, CreateMintIntent{
		Decimals:      9,
		MintAuthority: payer.Pub,
	})
	msg, err := CompileMessage(payer.Pub, instrs, testBlockhash())
	require.NoError(t, err)

	// The mint account is a required signer too.
	_, _, err = SignTransaction(msg, []*Keypair{payer})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing signer")
}

func TestAppendCompactU16(t *testing.T) {
	cases := []struct {
		value int
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, appendCompactU16(nil, tc.value), "value %d", tc.value)
	}
}
