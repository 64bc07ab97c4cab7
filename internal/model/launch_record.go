package model

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// AmountScale is the power of ten raw on-chain amounts are divided by.
const AmountScale = 8

// LaunchRecord is one detected launch/mint event.
type LaunchRecord struct {
	Address  string          `json:"address"`
	Amount   decimal.Decimal `json:"amount"`
	Block    uint64          `json:"block"`
	TxHash   string          `json:"tx_hash"`
	LogIndex uint32          `json:"log_index"`
	Time     int64           `json:"time"`
}

// Key returns the uniqueness key of the record.
func (r LaunchRecord) Key() string {
	return fmt.Sprintf("%s:%d", r.TxHash, r.LogIndex)
}

// ScaleAmount converts a raw integer amount into display units.
func ScaleAmount(raw uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -AmountScale)
}

// ParseScaledAmount parses an unsigned base-10 integer string and scales it
// into display units. Signs are rejected.
func ParseScaledAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return decimal.Decimal{}, fmt.Errorf("invalid integer amount %q", raw)
		}
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("invalid integer amount %q", raw)
	}
	return decimal.NewFromBigInt(n, -AmountScale), nil
}
