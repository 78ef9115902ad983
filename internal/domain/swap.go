package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token is the token reference embedded in a raw swap.
type Token struct {
	ID       string // token contract address
	Symbol   string
	Decimals int32 // scaling exponent for raw amounts
}

// Pool is the liquidity pool reference embedded in a raw swap.
type Pool struct {
	ID     string // pool contract address
	Name   string
	Symbol string
}

// RawSwap is one swap event as returned by a single subgraph.
// Amounts are unscaled on-chain integers; divide by 10^Decimals before use.
type RawSwap struct {
	Timestamp    int64  // epoch seconds
	To           string // recipient
	From         string // sender
	TokenIn      Token
	AmountIn     decimal.Decimal
	AmountInUSD  decimal.Decimal
	TokenOut     Token
	AmountOut    decimal.Decimal
	AmountOutUSD decimal.Decimal
	Pool         Pool
	Hash         string
	LogIndex     int64
	Project      SourceID // appended by the aggregator
}

// Swap is the canonical, source-independent swap row.
type Swap struct {
	Swapper                string
	SwapDatetime           time.Time
	Dex                    SourceID
	TokenAddressIn         string
	TokenSymbolIn          string
	AmountIn               float64
	AmountInUSD            float64
	TokenInApproxPriceUSD  float64
	TokenAddressOut        string
	TokenSymbolOut         string
	AmountOut              float64
	AmountOutUSD           float64
	TokenOutApproxPriceUSD float64
	ConversionRateInToOut  float64
	PoolAddress            string
	PoolName               string
	TxHash                 string
	LogIndex               int64
}

// SwapFilter restricts fetched swaps to a set of recipient addresses.
type SwapFilter struct {
	Recipients []string
}
