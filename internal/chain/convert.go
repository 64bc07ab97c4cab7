package chain

import (
	solrpc "github.com/gagliardetto/solana-go/rpc"

	"launchScope/internal/model"
)

// ConvertBlock maps a getBlock result into the domain model. Transactions that
// cannot be decoded are dropped.
func ConvertBlock(slot uint64, result *solrpc.GetBlockResult) *model.Block {
	block := &model.Block{Slot: slot}
	if result.BlockHeight != nil {
		block.Height = *result.BlockHeight
	}
	if result.BlockTime != nil {
		block.Time = int64(*result.BlockTime)
	}

	block.Transactions = make([]model.Transaction, 0, len(result.Transactions))
	for _, twm := range result.Transactions {
		tx, ok := convertTransaction(twm)
		if !ok {
			continue
		}
		block.Transactions = append(block.Transactions, tx)
	}
	return block
}

func convertTransaction(twm solrpc.TransactionWithMeta) (model.Transaction, bool) {
	if twm.Transaction == nil {
		return model.Transaction{}, false
	}
	decoded, err := twm.GetTransaction()
	if err != nil || decoded == nil || len(decoded.Signatures) == 0 {
		return model.Transaction{}, false
	}

	tx := model.Transaction{
		Signature:    decoded.Signatures[0].String(),
		AccountKeys:  decoded.Message.AccountKeys,
		Instructions: make([]model.Instruction, 0, len(decoded.Message.Instructions)),
	}
	for _, ins := range decoded.Message.Instructions {
		tx.Instructions = append(tx.Instructions, model.Instruction{
			ProgramIndex: ins.ProgramIDIndex,
			Accounts:     ins.Accounts,
			Data:         ins.Data,
		})
	}

	if twm.Meta == nil {
		return tx, true
	}
	tx.HasMeta = true
	tx.Failed = twm.Meta.Err != nil
	tx.Logs = twm.Meta.LogMessages
	for _, set := range twm.Meta.InnerInstructions {
		inner := model.InnerInstructionSet{
			Index:        set.Index,
			Instructions: make([]model.Instruction, 0, len(set.Instructions)),
		}
		for _, ins := range set.Instructions {
			inner.Instructions = append(inner.Instructions, model.Instruction{
				ProgramIndex: ins.ProgramIDIndex,
				Accounts:     ins.Accounts,
				Data:         ins.Data,
			})
		}
		tx.InnerInstructions = append(tx.InnerInstructions, inner)
	}
	return tx, true
}
