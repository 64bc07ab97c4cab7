package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"launchScope/internal/model"
)

// ParseMintLine parses "Program log: Mint user = <addr>,amount = <n>" and
// returns the address and the scaled amount.
func ParseMintLine(line string) (string, decimal.Decimal, bool) {
	if !strings.Contains(line, MintLogPrefix) {
		return "", decimal.Decimal{}, false
	}

	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return "", decimal.Decimal{}, false
	}
	address, ok := fieldValue(fields[0])
	if !ok {
		return "", decimal.Decimal{}, false
	}
	rawAmount, ok := fieldValue(fields[1])
	if !ok {
		return "", decimal.Decimal{}, false
	}
	amount, err := model.ParseScaledAmount(rawAmount)
	if err != nil {
		return "", decimal.Decimal{}, false
	}
	return address, amount, true
}

func fieldValue(field string) (string, bool) {
	_, value, found := strings.Cut(field, "=")
	if !found {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
