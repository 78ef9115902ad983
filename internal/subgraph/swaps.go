package subgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-swaps-lab/internal/domain"
)

// DefaultRowLimit is the maximum number of swaps requested from one source.
const DefaultRowLimit = 10_000

// maxDecimals bounds token decimals; ERC-20 decimals is a uint8.
const maxDecimals = 255

const swapsQueryTemplate = `
	query Swaps($first: Int!, $where: Swap_filter) {
		swaps(first: $first, orderBy: timestamp, orderDirection: desc, where: $where) {
			%s
		}
	}
`

// swapRecord mirrors the JSON of one selected swap. BigInt and BigDecimal
// scalars arrive as strings, Int as numbers; decimal.Decimal accepts both.
type swapRecord struct {
	Timestamp    decimal.Decimal `json:"timestamp"`
	To           string          `json:"to"`
	From         string          `json:"from"`
	TokenIn      tokenRecord     `json:"tokenIn"`
	AmountIn     decimal.Decimal `json:"amountIn"`
	AmountInUSD  decimal.Decimal `json:"amountInUSD"`
	TokenOut     tokenRecord     `json:"tokenOut"`
	AmountOut    decimal.Decimal `json:"amountOut"`
	AmountOutUSD decimal.Decimal `json:"amountOutUSD"`
	Pool         poolRecord      `json:"pool"`
	Hash         string          `json:"hash"`
	LogIndex     decimal.Decimal `json:"logIndex"`
}

type tokenRecord struct {
	ID       string          `json:"id"`
	Symbol   string          `json:"symbol"`
	Decimals decimal.Decimal `json:"decimals"`
}

type poolRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type swapsResult struct {
	Swaps []swapRecord `json:"swaps"`
}

// QuerySwaps fetches up to first swaps received by the filter recipients,
// newest first. Recipients are expected lowercase (see domain.NewSwapFilter).
func (s *Schema) QuerySwaps(ctx context.Context, filter domain.SwapFilter, first int) ([]domain.RawSwap, error) {
	if s.client == nil {
		return nil, errors.New("schema has no client")
	}
	if first <= 0 {
		first = DefaultRowLimit
	}

	recipients := filter.Recipients
	if recipients == nil {
		recipients = []string{}
	}
	vars := map[string]interface{}{
		"first": first,
		"where": map[string]interface{}{"to_in": recipients},
	}

	var result swapsResult
	query := fmt.Sprintf(swapsQueryTemplate, s.selection.String())
	if err := s.client.Do(ctx, "Swaps", query, vars, &result); err != nil {
		return nil, fmt.Errorf("query swaps %s: %w", s.Source.ID, err)
	}

	rows := make([]domain.RawSwap, 0, len(result.Swaps))
	for i, rec := range result.Swaps {
		row, err := rec.toRaw()
		if err != nil {
			return nil, fmt.Errorf("%w: %s swap %d: %v", ErrSchemaMismatch, s.Source.ID, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r swapRecord) toRaw() (domain.RawSwap, error) {
	decIn, err := tokenDecimals(r.TokenIn.Decimals)
	if err != nil {
		return domain.RawSwap{}, fmt.Errorf("tokenIn: %w", err)
	}
	decOut, err := tokenDecimals(r.TokenOut.Decimals)
	if err != nil {
		return domain.RawSwap{}, fmt.Errorf("tokenOut: %w", err)
	}

	return domain.RawSwap{
		Timestamp: r.Timestamp.IntPart(),
		To:        r.To,
		From:      r.From,
		TokenIn: domain.Token{
			ID:       r.TokenIn.ID,
			Symbol:   r.TokenIn.Symbol,
			Decimals: decIn,
		},
		AmountIn:    r.AmountIn,
		AmountInUSD: r.AmountInUSD,
		TokenOut: domain.Token{
			ID:       r.TokenOut.ID,
			Symbol:   r.TokenOut.Symbol,
			Decimals: decOut,
		},
		AmountOut:    r.AmountOut,
		AmountOutUSD: r.AmountOutUSD,
		Pool: domain.Pool{
			ID:     r.Pool.ID,
			Name:   r.Pool.Name,
			Symbol: r.Pool.Symbol,
		},
		Hash:     r.Hash,
		LogIndex: r.LogIndex.IntPart(),
	}, nil
}

func tokenDecimals(d decimal.Decimal) (int32, error) {
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("non-integer decimals %s", d)
	}
	n := d.IntPart()
	if n < 0 || n > maxDecimals {
		return 0, fmt.Errorf("decimals %d out of range", n)
	}
	return int32(n), nil
}
