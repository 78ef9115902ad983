// Package export writes canonical swap tables as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"dex-swaps-lab/internal/domain"
)

// Record is one canonical row keyed by canonical column names.
type Record struct {
	Swapper                string    `json:"swapper"`
	SwapDatetime           time.Time `json:"swap_datetime"`
	Dex                    string    `json:"dex"`
	TokenAddressIn         string    `json:"token_address_in"`
	TokenSymbolIn          string    `json:"token_symbol_in"`
	AmountIn               float64   `json:"amount_in"`
	AmountInUSD            float64   `json:"amount_in_usd"`
	TokenInApproxPriceUSD  float64   `json:"token_in_approx_price_usd"`
	TokenAddressOut        string    `json:"token_address_out"`
	TokenSymbolOut         string    `json:"token_symbol_out"`
	AmountOut              float64   `json:"amount_out"`
	AmountOutUSD           float64   `json:"amount_out_usd"`
	TokenOutApproxPriceUSD float64   `json:"token_out_approx_price_usd"`
	ConversionRateInToOut  float64   `json:"conversion_rate_in_to_out"`
	PoolAddress            string    `json:"pool_address"`
	PoolName               string    `json:"pool_name"`
	TxHash                 string    `json:"tx_hash"`
	LogIndex               int64     `json:"log_index"`
}

// NewRecord converts a canonical swap.
func NewRecord(s *domain.Swap) Record {
	return Record{
		Swapper:                s.Swapper,
		SwapDatetime:           s.SwapDatetime.UTC(),
		Dex:                    s.Dex.String(),
		TokenAddressIn:         s.TokenAddressIn,
		TokenSymbolIn:          s.TokenSymbolIn,
		AmountIn:               s.AmountIn,
		AmountInUSD:            s.AmountInUSD,
		TokenInApproxPriceUSD:  s.TokenInApproxPriceUSD,
		TokenAddressOut:        s.TokenAddressOut,
		TokenSymbolOut:         s.TokenSymbolOut,
		AmountOut:              s.AmountOut,
		AmountOutUSD:           s.AmountOutUSD,
		TokenOutApproxPriceUSD: s.TokenOutApproxPriceUSD,
		ConversionRateInToOut:  s.ConversionRateInToOut,
		PoolAddress:            s.PoolAddress,
		PoolName:               s.PoolName,
		TxHash:                 s.TxHash,
		LogIndex:               s.LogIndex,
	}
}

// Records converts every row of table. A nil table yields an empty slice.
func Records(table *domain.Table) []Record {
	out := make([]Record, 0, table.Len())
	if table == nil {
		return out
	}
	for i := range table.Rows {
		out = append(out, NewRecord(&table.Rows[i]))
	}
	return out
}

// WriteJSON writes table as a JSON array of records.
func WriteJSON(w io.Writer, table *domain.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Records(table)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteCSV writes table with a canonical column header. Datetimes are RFC3339 UTC.
func WriteCSV(w io.Writer, table *domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.CanonicalColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if table != nil {
		for i := range table.Rows {
			if err := cw.Write(csvRow(&table.Rows[i])); err != nil {
				return fmt.Errorf("write row %d: %w", i, err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func csvRow(s *domain.Swap) []string {
	return []string{
		s.Swapper,
		s.SwapDatetime.UTC().Format(time.RFC3339),
		s.Dex.String(),
		s.TokenAddressIn,
		s.TokenSymbolIn,
		formatFloat(s.AmountIn),
		formatFloat(s.AmountInUSD),
		formatFloat(s.TokenInApproxPriceUSD),
		s.TokenAddressOut,
		s.TokenSymbolOut,
		formatFloat(s.AmountOut),
		formatFloat(s.AmountOutUSD),
		formatFloat(s.TokenOutApproxPriceUSD),
		formatFloat(s.ConversionRateInToOut),
		s.PoolAddress,
		s.PoolName,
		s.TxHash,
		strconv.FormatInt(s.LogIndex, 10),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
