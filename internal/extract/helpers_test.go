package extract

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

func testKey(b byte) solana.PublicKey {
	return solana.PublicKeyFromBytes(bytes.Repeat([]byte{b}, 32))
}

func mintData(amount uint64, bump uint8) []byte {
	data := make([]byte, 9)
	binary.LittleEndian.PutUint64(data, amount)
	data[8] = bump
	return data
}

func transferData(lamports uint64) []byte {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data, 2)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	return data
}
