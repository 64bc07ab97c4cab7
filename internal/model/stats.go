package model

import "github.com/shopspring/decimal"

// Stats summarizes the launch record ledger.
type Stats struct {
	Records     int64           `json:"records"`
	Addresses   int64           `json:"addresses"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LatestBlock uint64          `json:"latest_block"`
}
