package model

import "github.com/gagliardetto/solana-go"

// Block is a confirmed block with its decoded transactions.
type Block struct {
	Slot         uint64
	Height       uint64
	Time         int64
	Transactions []Transaction
}

// Transaction is a decoded transaction with the parts of its status meta the
// extractors need.
type Transaction struct {
	Signature         string
	HasMeta           bool
	Failed            bool
	AccountKeys       []solana.PublicKey
	Instructions      []Instruction
	InnerInstructions []InnerInstructionSet
	Logs              []string
}

// Instruction is a compiled instruction referencing AccountKeys by index.
type Instruction struct {
	ProgramIndex uint16
	Accounts     []uint16
	Data         []byte
}

// InnerInstructionSet groups the inner instructions invoked by the top-level
// instruction at Index.
type InnerInstructionSet struct {
	Index        uint16
	Instructions []Instruction
}

// AccountKey resolves an account index, reporting false when out of range.
func (tx Transaction) AccountKey(index uint16) (solana.PublicKey, bool) {
	if int(index) >= len(tx.AccountKeys) {
		return solana.PublicKey{}, false
	}
	return tx.AccountKeys[index], true
}

// ProgramID resolves the program invoked by ins.
func (tx Transaction) ProgramID(ins Instruction) (solana.PublicKey, bool) {
	return tx.AccountKey(ins.ProgramIndex)
}

// InstructionAccount resolves the n-th account of ins.
func (tx Transaction) InstructionAccount(ins Instruction, n int) (solana.PublicKey, bool) {
	if n < 0 || n >= len(ins.Accounts) {
		return solana.PublicKey{}, false
	}
	return tx.AccountKey(ins.Accounts[n])
}
