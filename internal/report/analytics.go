package report

import (
	"math"
	"sort"
	"time"

	"dex-swaps-lab/internal/domain"
)

// bucketWidth is the width of a weekly volume bucket.
const bucketWidth = 7 * 24 * time.Hour

// Weekly series names.
const (
	SeriesDex      = "dex"
	SeriesPool     = "pool"
	SeriesNet      = "net_token"
	SeriesAbsolute = "absolute_token"
)

// PairVolume aggregates the swaps from one token symbol into another.
type PairVolume struct {
	TokenIn   string  `json:"token_symbol_in"`
	TokenOut  string  `json:"token_symbol_out"`
	Swaps     int     `json:"swaps"`
	VolumeUSD float64 `json:"volume_usd"`
}

// PoolVolume aggregates the swaps routed through one pool of one dex.
type PoolVolume struct {
	Dex       domain.SourceID `json:"dex"`
	Pool      string          `json:"pool_name"`
	Swaps     int             `json:"swaps"`
	VolumeUSD float64         `json:"volume_usd"`
}

// NetToken is the USD bought minus the USD sold of one token symbol.
type NetToken struct {
	Symbol string  `json:"token_symbol"`
	NetUSD float64 `json:"net_usd"`
}

// AbsoluteToken is the USD bought plus the USD sold of one token symbol on
// one dex.
type AbsoluteToken struct {
	Symbol    string          `json:"token_symbol"`
	Dex       domain.SourceID `json:"dex"`
	VolumeUSD float64         `json:"volume_usd"`
}

// WeeklyVolume is the USD volume of one series key within a 7 day bucket.
type WeeklyVolume struct {
	Week      time.Time `json:"week"`
	Series    string    `json:"series"`
	Key       string    `json:"key"`
	VolumeUSD float64   `json:"volume_usd"`
}

// leg is one side of a swap: the token sold (usd < 0) or bought (usd > 0).
type leg struct {
	symbol string
	dex    domain.SourceID
	at     time.Time
	usd    float64
}

func legs(table *domain.Table) []leg {
	if table.Len() == 0 {
		return nil
	}
	out := make([]leg, 0, 2*table.Len())
	for i := range table.Rows {
		row := &table.Rows[i]
		out = append(out,
			leg{symbol: row.TokenSymbolIn, dex: row.Dex, at: row.SwapDatetime, usd: -row.AmountInUSD},
			leg{symbol: row.TokenSymbolOut, dex: row.Dex, at: row.SwapDatetime, usd: row.AmountOutUSD},
		)
	}
	return out
}

// Pairs groups swaps by (token_symbol_in, token_symbol_out) summing
// amount_in_usd. Sorted by volume desc, then swaps desc, then symbols.
func Pairs(table *domain.Table) []PairVolume {
	type key struct{ in, out string }
	groups := make(map[key]*PairVolume)
	out := []PairVolume{}
	if table.Len() == 0 {
		return out
	}
	for i := range table.Rows {
		row := &table.Rows[i]
		k := key{row.TokenSymbolIn, row.TokenSymbolOut}
		p, ok := groups[k]
		if !ok {
			p = &PairVolume{TokenIn: k.in, TokenOut: k.out}
			groups[k] = p
		}
		p.Swaps++
		p.VolumeUSD += row.AmountInUSD
	}

	for _, p := range groups {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.VolumeUSD != b.VolumeUSD {
			return a.VolumeUSD > b.VolumeUSD
		}
		if a.Swaps != b.Swaps {
			return a.Swaps > b.Swaps
		}
		if a.TokenIn != b.TokenIn {
			return a.TokenIn < b.TokenIn
		}
		return a.TokenOut < b.TokenOut
	})
	return out
}

// Pools groups swaps by (dex, pool_name) summing amount_in_usd. Sorted by
// volume desc, then swaps desc, then dex and pool.
func Pools(table *domain.Table) []PoolVolume {
	type key struct {
		dex  domain.SourceID
		pool string
	}
	groups := make(map[key]*PoolVolume)
	out := []PoolVolume{}
	if table.Len() == 0 {
		return out
	}
	for i := range table.Rows {
		row := &table.Rows[i]
		k := key{row.Dex, row.PoolName}
		p, ok := groups[k]
		if !ok {
			p = &PoolVolume{Dex: k.dex, Pool: k.pool}
			groups[k] = p
		}
		p.Swaps++
		p.VolumeUSD += row.AmountInUSD
	}

	for _, p := range groups {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.VolumeUSD != b.VolumeUSD {
			return a.VolumeUSD > b.VolumeUSD
		}
		if a.Swaps != b.Swaps {
			return a.Swaps > b.Swaps
		}
		if a.Dex != b.Dex {
			return a.Dex < b.Dex
		}
		return a.Pool < b.Pool
	})
	return out
}

// NetTokens sums amount_out_usd minus amount_in_usd per token symbol.
// Blank symbols and zero totals are dropped. Sorted by net desc, then symbol.
func NetTokens(table *domain.Table) []NetToken {
	totals := make(map[string]float64)
	for _, l := range legs(table) {
		totals[l.symbol] += l.usd
	}

	out := []NetToken{}
	for symbol, net := range totals {
		if symbol == "" || net == 0 {
			continue
		}
		out = append(out, NetToken{Symbol: symbol, NetUSD: net})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetUSD != out[j].NetUSD {
			return out[i].NetUSD > out[j].NetUSD
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// AbsoluteTokens sums amount_in_usd plus amount_out_usd per (symbol, dex).
// Blank symbols and zero totals are dropped. Sorted by volume desc, then
// symbol and dex.
func AbsoluteTokens(table *domain.Table) []AbsoluteToken {
	type key struct {
		symbol string
		dex    domain.SourceID
	}
	totals := make(map[key]float64)
	for _, l := range legs(table) {
		totals[key{l.symbol, l.dex}] += math.Abs(l.usd)
	}

	out := []AbsoluteToken{}
	for k, v := range totals {
		if k.symbol == "" || v == 0 {
			continue
		}
		out = append(out, AbsoluteToken{Symbol: k.symbol, Dex: k.dex, VolumeUSD: v})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.VolumeUSD != b.VolumeUSD {
			return a.VolumeUSD > b.VolumeUSD
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Dex < b.Dex
	})
	return out
}

// Weekly buckets USD volume into 7 day windows anchored at midnight UTC of
// the earliest swap. Dex and pool series sum amount_in_usd and keep every
// group. Token series sum net and absolute leg volume, dropping blank
// symbols and zero totals. Sorted by week, then series, then key.
func Weekly(table *domain.Table) []WeeklyVolume {
	out := []WeeklyVolume{}
	if table.Len() == 0 {
		return out
	}

	origin := table.Rows[0].SwapDatetime
	for i := range table.Rows {
		if t := table.Rows[i].SwapDatetime; t.Before(origin) {
			origin = t
		}
	}
	origin = origin.UTC().Truncate(24 * time.Hour)
	bucket := func(t time.Time) time.Time {
		return origin.Add(t.Sub(origin) / bucketWidth * bucketWidth)
	}

	type key struct {
		week   time.Time
		series string
		name   string
	}
	totals := make(map[key]float64)
	for i := range table.Rows {
		row := &table.Rows[i]
		week := bucket(row.SwapDatetime)
		totals[key{week, SeriesDex, row.Dex.String()}] += row.AmountInUSD
		totals[key{week, SeriesPool, row.PoolName}] += row.AmountInUSD
	}
	for _, l := range legs(table) {
		week := bucket(l.at)
		totals[key{week, SeriesNet, l.symbol}] += l.usd
		totals[key{week, SeriesAbsolute, l.symbol}] += math.Abs(l.usd)
	}

	for k, v := range totals {
		token := k.series == SeriesNet || k.series == SeriesAbsolute
		if token && (k.name == "" || v == 0) {
			continue
		}
		out = append(out, WeeklyVolume{Week: k.week, Series: k.series, Key: k.name, VolumeUSD: v})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Week.Equal(b.Week) {
			return a.Week.Before(b.Week)
		}
		if a.Series != b.Series {
			return a.Series < b.Series
		}
		return a.Key < b.Key
	})
	return out
}
