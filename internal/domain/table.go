package domain

import "strings"

// Raw column names, in the order subgraph results are materialized.
const (
	ColTimestamp      = "swaps_timestamp"
	ColTo             = "swaps_to"
	ColFrom           = "swaps_from"
	ColTokenInID      = "swaps_tokenIn_id"
	ColTokenInSymbol  = "swaps_tokenIn_symbol"
	ColTokenInDec     = "swaps_tokenIn_decimals"
	ColAmountIn       = "swaps_amountIn"
	ColAmountInUSD    = "swaps_amountInUSD"
	ColTokenOutID     = "swaps_tokenOut_id"
	ColTokenOutSymbol = "swaps_tokenOut_symbol"
	ColTokenOutDec    = "swaps_tokenOut_decimals"
	ColAmountOut      = "swaps_amountOut"
	ColAmountOutUSD   = "swaps_amountOutUSD"
	ColPoolID         = "swaps_pool_id"
	ColPoolName       = "swaps_pool_name"
	ColPoolSymbol     = "swaps_pool_symbol"
	ColHash           = "swaps_hash"
	ColLogIndex       = "swaps_logIndex"
	ColProject        = "project"
)

// RawColumns is the full raw schema of a combined table.
var RawColumns = []string{
	ColTimestamp, ColTo, ColFrom,
	ColTokenInID, ColTokenInSymbol, ColTokenInDec, ColAmountIn, ColAmountInUSD,
	ColTokenOutID, ColTokenOutSymbol, ColTokenOutDec, ColAmountOut, ColAmountOutUSD,
	ColPoolID, ColPoolName, ColPoolSymbol,
	ColHash, ColLogIndex,
	ColProject,
}

// CanonicalColumns is the normalized schema, in output order.
var CanonicalColumns = []string{
	"swapper",
	"swap_datetime",
	"dex",
	"token_address_in",
	"token_symbol_in",
	"amount_in",
	"amount_in_usd",
	"token_in_approx_price_usd",
	"token_address_out",
	"token_symbol_out",
	"amount_out",
	"amount_out_usd",
	"token_out_approx_price_usd",
	"conversion_rate_in_to_out",
	"pool_address",
	"pool_name",
	"tx_hash",
	"log_index",
}

// RawTable is a row-oriented table of raw swaps with source-native column names.
// A table fetched from a single source has every raw column except ColProject.
type RawTable struct {
	Columns []string
	Rows    []RawSwap
}

// NewRawTable returns an empty table carrying the full raw schema.
func NewRawTable() *RawTable {
	return &RawTable{
		Columns: append([]string(nil), RawColumns...),
		Rows:    []RawSwap{},
	}
}

// Len returns the number of rows, treating a nil table as empty.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table schema includes name.
func (t *RawTable) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// TagProject sets Project on every row and adds the project column.
func (t *RawTable) TagProject(id SourceID) {
	for i := range t.Rows {
		t.Rows[i].Project = id
	}
	if !t.HasColumn(ColProject) {
		t.Columns = append(t.Columns, ColProject)
	}
}

// Table is the canonical swap table handed to consumers.
type Table struct {
	Columns []string
	Rows    []Swap
}

// NewTable returns a canonical table with capacity for n rows.
func NewTable(n int) *Table {
	return &Table{
		Columns: append([]string(nil), CanonicalColumns...),
		Rows:    make([]Swap, 0, n),
	}
}

// Len returns the number of rows, treating a nil table as empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// NewSwapFilter lowercases, trims and de-duplicates addresses, dropping blanks.
// On-chain addresses are case-insensitive while subgraphs store them lowercase.
func NewSwapFilter(addresses []string) SwapFilter {
	seen := make(map[string]struct{}, len(addresses))
	recipients := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		recipients = append(recipients, a)
	}
	return SwapFilter{Recipients: recipients}
}

// IsEmpty reports whether the filter has no recipients.
func (f SwapFilter) IsEmpty() bool {
	return len(f.Recipients) == 0
}
