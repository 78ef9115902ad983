// Package normalization converts raw per-source swap tables into the canonical
// swap table.
package normalization

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"dex-swaps-lab/internal/domain"
)

// Normalize maps every raw row to exactly one canonical row, in input order.
// It is pure: the same input always yields the same output. A nil or empty
// input yields an empty table with the canonical columns.
func Normalize(raw *domain.RawTable) *domain.Table {
	out := domain.NewTable(raw.Len())
	if raw == nil {
		return out
	}
	for i := range raw.Rows {
		out.Rows = append(out.Rows, NormalizeSwap(raw.Rows[i]))
	}
	return out
}

// NormalizeSwap converts one raw swap.
func NormalizeSwap(r domain.RawSwap) domain.Swap {
	amountIn := ScaleAmount(r.AmountIn, r.TokenIn.Decimals)
	amountOut := ScaleAmount(r.AmountOut, r.TokenOut.Decimals)
	amountInUSD := finite(r.AmountInUSD.InexactFloat64())
	amountOutUSD := finite(r.AmountOutUSD.InexactFloat64())

	return domain.Swap{
		Swapper:                r.To,
		SwapDatetime:           time.Unix(r.Timestamp, 0).UTC(),
		Dex:                    r.Project,
		TokenAddressIn:         r.TokenIn.ID,
		TokenSymbolIn:          r.TokenIn.Symbol,
		AmountIn:               amountIn,
		AmountInUSD:            amountInUSD,
		TokenInApproxPriceUSD:  SafeDiv(amountInUSD, amountIn),
		TokenAddressOut:        r.TokenOut.ID,
		TokenSymbolOut:         r.TokenOut.Symbol,
		AmountOut:              amountOut,
		AmountOutUSD:           amountOutUSD,
		TokenOutApproxPriceUSD: SafeDiv(amountOutUSD, amountOut),
		ConversionRateInToOut:  SafeDiv(amountIn, amountOut),
		PoolAddress:            r.Pool.ID,
		PoolName:               r.Pool.Name,
		TxHash:                 r.Hash,
		LogIndex:               r.LogIndex,
	}
}

// ScaleAmount divides a raw on-chain integer by 10^decimals.
// The shift is exact; only the final conversion to float64 rounds.
func ScaleAmount(raw decimal.Decimal, decimals int32) float64 {
	return finite(raw.Shift(-decimals).InexactFloat64())
}

// SafeDiv returns num/den, or 0 when den is 0 or the quotient is not finite.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finite(num / den)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
