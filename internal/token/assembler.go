package token

// AccountSet is the result of probing on-chain account existence.
// Assembly is a pure function of (intent, AccountSet) so the decision tree
// is testable without a live network.
type AccountSet map[Pubkey]bool

// Exists reports whether the probe found the account.
func (s AccountSet) Exists(pk Pubkey) bool {
	return s[pk]
}

// CreateMintIntent describes a create-mint request after validation.
type CreateMintIntent struct {
	Decimals        uint8
	MintAuthority   Pubkey
	FreezeAuthority *Pubkey
}

// MintToIntent describes a mint-to request after validation.
type MintToIntent struct {
	Mint        Pubkey
	Destination Pubkey // destination owner, not the token account
	Amount      uint64
	Authority   Pubkey
}

// TransferIntent describes a transfer request after validation.
type TransferIntent struct {
	Mint   Pubkey
	From   Pubkey // source owner
	To     Pubkey // destination owner
	Amount uint64
	Owner  Pubkey // signer authorized over the source account
}

// AssembleCreateMint produces the fixed two-instruction sequence for a new
// mint: account creation funded by the fee payer, then mint initialization.
// rentLamports is the current rent-exemption minimum for MintAccountSize.
func AssembleCreateMint(payer, mint Pubkey, rentLamports uint64, intent CreateMintIntent) []Instruction {
	return []Instruction{
		NewCreateAccountInstruction(payer, mint, rentLamports, MintAccountSize, TokenProgramID),
		NewInitializeMintInstruction(mint, intent.Decimals, intent.MintAuthority, intent.FreezeAuthority),
	}
}

// MintToPlan is the assembled instruction sequence for a mint-to intent.
type MintToPlan struct {
	DestinationATA Pubkey
	Instructions   []Instruction
}

// AssembleMintTo derives the destination's token account and prepends its
// creation when the existence probe did not find it. "Not found" is the
// expected bootstrap case, not an error.
func AssembleMintTo(payer Pubkey, intent MintToIntent, existing AccountSet) (*MintToPlan, error) {
	ata, err := FindAssociatedTokenAddress(intent.Destination, intent.Mint)
	if err != nil {
		return nil, err
	}

	var instrs []Instruction
	if !existing.Exists(ata) {
		instrs = append(instrs, NewCreateAssociatedTokenAccountInstruction(payer, ata, intent.Destination, intent.Mint))
	}
	instrs = append(instrs, NewMintToInstruction(intent.Mint, ata, intent.Authority, intent.Amount))

	return &MintToPlan{DestinationATA: ata, Instructions: instrs}, nil
}

// TransferPlan is the assembled instruction sequence for a transfer intent.
type TransferPlan struct {
	SourceATA      Pubkey
	DestinationATA Pubkey
	Instructions   []Instruction
}

// AssembleTransfer derives both parties' token accounts and prepends
// creation of the destination when absent. The source account is assumed to
// exist since it must hold a balance.
func AssembleTransfer(payer Pubkey, intent TransferIntent, existing AccountSet) (*TransferPlan, error) {
	fromATA, err := FindAssociatedTokenAddress(intent.From, intent.Mint)
	if err != nil {
		return nil, err
	}
	toATA, err := FindAssociatedTokenAddress(intent.To, intent.Mint)
	if err != nil {
		return nil, err
	}

	var instrs []Instruction
	if !existing.Exists(toATA) {
		instrs = append(instrs, NewCreateAssociatedTokenAccountInstruction(payer, toATA, intent.To, intent.Mint))
	}
	instrs = append(instrs, NewTransferInstruction(fromATA, toATA, intent.Owner, intent.Amount))

	return &TransferPlan{SourceATA: fromATA, DestinationATA: toATA, Instructions: instrs}, nil
}
