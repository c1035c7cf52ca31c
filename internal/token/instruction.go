package token

import "encoding/binary"

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single on-chain instruction.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// System program instruction indices (u32 little-endian).
const sysCreateAccount uint32 = 0

// SPL token program instruction tags (u8).
const (
	tokenInitializeMint byte = 0
	tokenTransfer       byte = 3
	tokenMintTo         byte = 7
)

// Associated token account program instruction tags (u8).
// CreateIdempotent succeeds as a no-op when the account already exists,
// which resolves the concurrent-bootstrap race at the instruction level.
const ataCreateIdempotent byte = 1

// NewCreateAccountInstruction allocates a new account funded by funder,
// owned by the given program.
func NewCreateAccountInstruction(funder, newAccount Pubkey, lamports, space uint64, owner Pubkey) Instruction {
	data := make([]byte, 4+8+8+32)
	binary.LittleEndian.PutUint32(data[0:4], sysCreateAccount)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:52], owner[:])

	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: funder, IsSigner: true, IsWritable: true},
			{Pubkey: newAccount, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}

// NewInitializeMintInstruction binds decimals and authorities to a freshly
// created mint account. Must follow the account-creation instruction in the
// same transaction.
func NewInitializeMintInstruction(mint Pubkey, decimals uint8, mintAuthority Pubkey, freezeAuthority *Pubkey) Instruction {
	data := make([]byte, 0, 1+1+32+1+32)
	data = append(data, tokenInitializeMint, decimals)
	data = append(data, mintAuthority[:]...)
	if freezeAuthority != nil {
		data = append(data, 1)
		data = append(data, freezeAuthority[:]...)
	} else {
		data = append(data, 0)
	}

	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: mint, IsWritable: true},
			{Pubkey: SysvarRentID},
		},
		Data: data,
	}
}

// NewCreateAssociatedTokenAccountInstruction creates the deterministic
// (owner, mint) token account, funded by funder. Idempotent variant: a
// duplicate creation attempt against an existing account is a no-op.
func NewCreateAssociatedTokenAccountInstruction(funder, ata, owner, mint Pubkey) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: funder, IsSigner: true, IsWritable: true},
			{Pubkey: ata, IsWritable: true},
			{Pubkey: owner},
			{Pubkey: mint},
			{Pubkey: SystemProgramID},
			{Pubkey: TokenProgramID},
		},
		Data: []byte{ataCreateIdempotent},
	}
}

// NewMintToInstruction credits amount base units to a token account,
// authorized by the mint authority.
func NewMintToInstruction(mint, destination, authority Pubkey, amount uint64) Instruction {
	data := make([]byte, 1+8)
	data[0] = tokenMintTo
	binary.LittleEndian.PutUint64(data[1:9], amount)

	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: mint, IsWritable: true},
			{Pubkey: destination, IsWritable: true},
			{Pubkey: authority, IsSigner: true},
		},
		Data: data,
	}
}

// NewTransferInstruction moves amount base units between token accounts,
// authorized by the source owner.
func NewTransferInstruction(source, destination, owner Pubkey, amount uint64) Instruction {
	data := make([]byte, 1+8)
	data[0] = tokenTransfer
	binary.LittleEndian.PutUint64(data[1:9], amount)

	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: source, IsWritable: true},
			{Pubkey: destination, IsWritable: true},
			{Pubkey: owner, IsSigner: true},
		},
		Data: data,
	}
}
