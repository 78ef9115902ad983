// Package report summarizes a canonical swap table.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"dex-swaps-lab/internal/domain"
)

// Summary is an aggregate view of a swap table.
type Summary struct {
	TotalSwaps       int           `json:"total_swaps"`
	DistinctSwappers int           `json:"distinct_swappers"`
	FirstSwap        *time.Time    `json:"first_swap,omitempty"`
	LastSwap         *time.Time    `json:"last_swap,omitempty"`
	VolumeInUSD      float64       `json:"volume_in_usd"`
	VolumeOutUSD     float64       `json:"volume_out_usd"`
	Dexes            []DexSummary  `json:"dexes"`
	TokensIn         []TokenVolume `json:"tokens_in"`

	Pairs          []PairVolume    `json:"pairs"`
	Pools          []PoolVolume    `json:"pools"`
	NetTokens      []NetToken      `json:"net_tokens"`
	AbsoluteTokens []AbsoluteToken `json:"absolute_tokens"`
	Weekly         []WeeklyVolume  `json:"weekly"`
}

// DexSummary aggregates the swaps of one source.
type DexSummary struct {
	Dex          domain.SourceID `json:"dex"`
	Swaps        int             `json:"swaps"`
	VolumeInUSD  float64         `json:"volume_in_usd"`
	VolumeOutUSD float64         `json:"volume_out_usd"`
}

// TokenVolume aggregates the swaps spending one token.
type TokenVolume struct {
	Address     string  `json:"address"`
	Symbol      string  `json:"symbol"`
	Swaps       int     `json:"swaps"`
	Amount      float64 `json:"amount"`
	VolumeInUSD float64 `json:"volume_in_usd"`
}

// Summarize aggregates table. Dexes are sorted by swap count desc then id;
// tokens by USD volume desc then address. The pair, pool, token flow and
// weekly breakdowns come from Pairs, Pools, NetTokens, AbsoluteTokens and
// Weekly. A nil table yields a zero Summary.
func Summarize(table *domain.Table) *Summary {
	s := &Summary{
		Dexes:          []DexSummary{},
		TokensIn:       []TokenVolume{},
		Pairs:          Pairs(table),
		Pools:          Pools(table),
		NetTokens:      NetTokens(table),
		AbsoluteTokens: AbsoluteTokens(table),
		Weekly:         Weekly(table),
	}
	if table.Len() == 0 {
		return s
	}

	swappers := make(map[string]struct{})
	dexes := make(map[domain.SourceID]*DexSummary)
	tokens := make(map[string]*TokenVolume)

	var first, last time.Time
	for i := range table.Rows {
		row := &table.Rows[i]

		s.TotalSwaps++
		s.VolumeInUSD += row.AmountInUSD
		s.VolumeOutUSD += row.AmountOutUSD
		swappers[row.Swapper] = struct{}{}

		if first.IsZero() || row.SwapDatetime.Before(first) {
			first = row.SwapDatetime
		}
		if row.SwapDatetime.After(last) {
			last = row.SwapDatetime
		}

		d, ok := dexes[row.Dex]
		if !ok {
			d = &DexSummary{Dex: row.Dex}
			dexes[row.Dex] = d
		}
		d.Swaps++
		d.VolumeInUSD += row.AmountInUSD
		d.VolumeOutUSD += row.AmountOutUSD

		tok, ok := tokens[row.TokenAddressIn]
		if !ok {
			tok = &TokenVolume{Address: row.TokenAddressIn, Symbol: row.TokenSymbolIn}
			tokens[row.TokenAddressIn] = tok
		}
		tok.Swaps++
		tok.Amount += row.AmountIn
		tok.VolumeInUSD += row.AmountInUSD
	}

	s.DistinctSwappers = len(swappers)
	s.FirstSwap = &first
	s.LastSwap = &last

	for _, d := range dexes {
		s.Dexes = append(s.Dexes, *d)
	}
	sort.Slice(s.Dexes, func(i, j int) bool {
		if s.Dexes[i].Swaps != s.Dexes[j].Swaps {
			return s.Dexes[i].Swaps > s.Dexes[j].Swaps
		}
		return s.Dexes[i].Dex < s.Dexes[j].Dex
	})

	for _, tok := range tokens {
		s.TokensIn = append(s.TokensIn, *tok)
	}
	sort.Slice(s.TokensIn, func(i, j int) bool {
		if s.TokensIn[i].VolumeInUSD != s.TokensIn[j].VolumeInUSD {
			return s.TokensIn[i].VolumeInUSD > s.TokensIn[j].VolumeInUSD
		}
		return s.TokensIn[i].Address < s.TokensIn[j].Address
	})

	return s
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}
