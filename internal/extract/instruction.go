package extract

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"launchScope/internal/model"
)

// MintArgs is the borsh layout of the launch program's mint instruction.
type MintArgs struct {
	Amount uint64
	Bump   uint8
}

// DecodeMintArgs decodes data as MintArgs, requiring every byte to be consumed.
func DecodeMintArgs(data []byte) (MintArgs, bool) {
	var args MintArgs
	dec := bin.NewBorshDecoder(data)
	if err := dec.Decode(&args); err != nil {
		return MintArgs{}, false
	}
	if dec.Remaining() != 0 {
		return MintArgs{}, false
	}
	return args, true
}

// DecodeSystemTransfer decodes a system program instruction and returns the
// lamports when it is a Transfer.
func DecodeSystemTransfer(data []byte) (uint64, bool) {
	dec := bin.NewBinDecoder(data)
	typeID, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil || typeID != system.Instruction_Transfer {
		return 0, false
	}
	lamports, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return 0, false
	}
	return lamports, true
}

// InstructionExtractor detects mints by decoding the launch program's
// instruction and the system transfers it invokes toward the receiver.
type InstructionExtractor struct {
	program  solana.PublicKey
	receiver solana.PublicKey
}

// NewInstructionExtractor builds an InstructionExtractor.
func NewInstructionExtractor(program, receiver solana.PublicKey) *InstructionExtractor {
	return &InstructionExtractor{program: program, receiver: receiver}
}

func (e *InstructionExtractor) Name() string {
	return "instruction"
}

// Extract implements Extractor. Every record carries log index 0.
func (e *InstructionExtractor) Extract(tx model.Transaction, block BlockContext) ([]model.LaunchRecord, error) {
	if !tx.HasMeta || tx.Failed {
		return nil, nil
	}

	var records []model.LaunchRecord
	for idx, ins := range tx.Instructions {
		programID, ok := tx.ProgramID(ins)
		if !ok || !programID.Equals(e.program) {
			continue
		}
		if _, ok := DecodeMintArgs(ins.Data); !ok {
			continue
		}

		for _, set := range tx.InnerInstructions {
			if int(set.Index) != idx {
				continue
			}
			for _, inner := range set.Instructions {
				record, ok := e.transferRecord(tx, inner, block)
				if ok {
					records = append(records, record)
				}
			}
		}
	}
	return records, nil
}

func (e *InstructionExtractor) transferRecord(tx model.Transaction, ins model.Instruction, block BlockContext) (model.LaunchRecord, bool) {
	programID, ok := tx.ProgramID(ins)
	if !ok || !programID.Equals(solana.SystemProgramID) {
		return model.LaunchRecord{}, false
	}
	from, ok := tx.InstructionAccount(ins, 0)
	if !ok {
		return model.LaunchRecord{}, false
	}
	to, ok := tx.InstructionAccount(ins, 1)
	if !ok || !to.Equals(e.receiver) {
		return model.LaunchRecord{}, false
	}
	lamports, ok := DecodeSystemTransfer(ins.Data)
	if !ok {
		return model.LaunchRecord{}, false
	}

	return model.LaunchRecord{
		Address:  from.String(),
		Amount:   model.ScaleAmount(lamports),
		Block:    block.Slot,
		TxHash:   tx.Signature,
		LogIndex: 0,
		Time:     block.Time,
	}, true
}
