package token

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// compiledKey tracks merged signer/writable flags for one account across all
// instructions in a message.
type compiledKey struct {
	pubkey     Pubkey
	isSigner   bool
	isWritable bool
}

// Message is a compiled legacy Solana transaction message.
type Message struct {
	keys            []compiledKey
	numRequired     int // required signatures
	numReadonlySig  int
	numReadonlyUns  int
	recentBlockhash [32]byte
	instructions    []Instruction
}

// CompileMessage orders account keys per the legacy message layout (fee payer
// first, then signer-writable, signer-readonly, nonsigner-writable,
// nonsigner-readonly) and binds the recent blockhash.
func CompileMessage(feePayer Pubkey, instructions []Instruction, recentBlockhash string) (*Message, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("no instructions")
	}

	bh, err := base58.Decode(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(bh) != 32 {
		return nil, fmt.Errorf("blockhash must be 32 bytes, got %d", len(bh))
	}

	merged := map[Pubkey]*compiledKey{
		feePayer: {pubkey: feePayer, isSigner: true, isWritable: true},
	}
	order := []Pubkey{feePayer}

	addKey := func(pk Pubkey, signer, writable bool) {
		k, ok := merged[pk]
		if !ok {
			k = &compiledKey{pubkey: pk}
			merged[pk] = k
			order = append(order, pk)
		}
		k.isSigner = k.isSigner || signer
		k.isWritable = k.isWritable || writable
	}

	for _, in := range instructions {
		for _, acc := range in.Accounts {
			addKey(acc.Pubkey, acc.IsSigner, acc.IsWritable)
		}
		addKey(in.ProgramID, false, false)
	}

	// Partition preserving first-seen order within each class.
	var signerW, signerR, nonsignerW, nonsignerR []compiledKey
	for _, pk := range order {
		k := merged[pk]
		switch {
		case k.isSigner && k.isWritable:
			signerW = append(signerW, *k)
		case k.isSigner:
			signerR = append(signerR, *k)
		case k.isWritable:
			nonsignerW = append(nonsignerW, *k)
		default:
			nonsignerR = append(nonsignerR, *k)
		}
	}

	msg := &Message{
		numRequired:    len(signerW) + len(signerR),
		numReadonlySig: len(signerR),
		numReadonlyUns: len(nonsignerR),
		instructions:   instructions,
	}
	msg.keys = append(msg.keys, signerW...)
	msg.keys = append(msg.keys, signerR...)
	msg.keys = append(msg.keys, nonsignerW...)
	msg.keys = append(msg.keys, nonsignerR...)
	copy(msg.recentBlockhash[:], bh)

	return msg, nil
}

// keyIndex returns the position of pk in the compiled key list.
func (m *Message) keyIndex(pk Pubkey) (byte, error) {
	for i, k := range m.keys {
		if k.pubkey == pk {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("account %s not in message", pk)
}

// Serialize encodes the message in the legacy wire format.
func (m *Message) Serialize() ([]byte, error) {
	out := make([]byte, 0, 256)

	// Header
	out = append(out, byte(m.numRequired), byte(m.numReadonlySig), byte(m.numReadonlyUns))

	// Account keys
	out = appendCompactU16(out, len(m.keys))
	for _, k := range m.keys {
		out = append(out, k.pubkey[:]...)
	}

	// Recent blockhash
	out = append(out, m.recentBlockhash[:]...)

	// Instructions
	out = appendCompactU16(out, len(m.instructions))
	for _, in := range m.instructions {
		progIdx, err := m.keyIndex(in.ProgramID)
		if err != nil {
			return nil, err
		}
		out = append(out, progIdx)

		out = appendCompactU16(out, len(in.Accounts))
		for _, acc := range in.Accounts {
			idx, err := m.keyIndex(acc.Pubkey)
			if err != nil {
				return nil, err
			}
			out = append(out, idx)
		}

		out = appendCompactU16(out, len(in.Data))
		out = append(out, in.Data...)
	}

	return out, nil
}

// SignTransaction serializes the message, signs it with every required
// signer, and returns the wire-format transaction plus the fee payer's
// signature (base58), which is the transaction identifier.
func SignTransaction(msg *Message, signers []*Keypair) (wire []byte, signature string, err error) {
	data, err := msg.Serialize()
	if err != nil {
		return nil, "", fmt.Errorf("serialize message: %w", err)
	}

	byPubkey := make(map[Pubkey]*Keypair, len(signers))
	for _, s := range signers {
		byPubkey[s.Pub] = s
	}

	wire = appendCompactU16(nil, msg.numRequired)
	for i := 0; i < msg.numRequired; i++ {
		kp, ok := byPubkey[msg.keys[i].pubkey]
		if !ok {
			return nil, "", fmt.Errorf("missing signer for %s", msg.keys[i].pubkey)
		}
		sig := kp.Sign(data)
		wire = append(wire, sig...)
		if i == 0 {
			signature = base58.Encode(sig)
		}
	}
	wire = append(wire, data...)

	return wire, signature, nil
}

// appendCompactU16 appends a compact-u16 (shortvec) length prefix.
func appendCompactU16(out []byte, v int) []byte {
	for {
		if v < 0x80 {
			return append(out, byte(v))
		}
		out = append(out, byte(v&0x7f)|0x80)
		v >>= 7
	}
}
