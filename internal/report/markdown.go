package report

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders s as a Markdown document. wallets are listed in the
// header when non-empty.
func RenderMarkdown(s *Summary, wallets []string, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Wallet Swaps Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.UTC().Format(time.RFC3339)))
	if len(wallets) > 0 {
		sb.WriteString(fmt.Sprintf("Wallets: %s\n\n", strings.Join(wallets, ", ")))
	}

	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Swaps | %d |\n", s.TotalSwaps))
	sb.WriteString(fmt.Sprintf("| Distinct Swappers | %d |\n", s.DistinctSwappers))
	sb.WriteString(fmt.Sprintf("| Volume In (USD) | %.2f |\n", s.VolumeInUSD))
	sb.WriteString(fmt.Sprintf("| Volume Out (USD) | %.2f |\n", s.VolumeOutUSD))
	if s.FirstSwap != nil && s.LastSwap != nil {
		sb.WriteString(fmt.Sprintf("| First Swap | %s |\n", s.FirstSwap.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Last Swap | %s |\n", s.LastSwap.Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	sb.WriteString("## By DEX\n\n")
	if len(s.Dexes) > 0 {
		sb.WriteString("| DEX | Swaps | Volume In (USD) | Volume Out (USD) |\n")
		sb.WriteString("|-----|-------|-----------------|------------------|\n")
		for _, d := range s.Dexes {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f |\n", d.Dex, d.Swaps, d.VolumeInUSD, d.VolumeOutUSD))
		}
	} else {
		sb.WriteString("No swaps found.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Tokens Sold\n\n")
	if len(s.TokensIn) > 0 {
		sb.WriteString("| Token | Address | Swaps | Amount | Volume (USD) |\n")
		sb.WriteString("|-------|---------|-------|--------|--------------|\n")
		for _, t := range s.TokensIn {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.6f | %.2f |\n",
				escapeCell(t.Symbol), t.Address, t.Swaps, t.Amount, t.VolumeInUSD))
		}
	} else {
		sb.WriteString("No swaps found.\n")
	}
	sb.WriteString("\n")

	writePairs(&sb, s.Pairs)
	writePools(&sb, s.Pools)
	writeNetTokens(&sb, s.NetTokens)
	writeAbsoluteTokens(&sb, s.AbsoluteTokens)
	writeWeekly(&sb, s.Weekly)

	return sb.String()
}

// Row limits for the Markdown breakdowns. JSON output carries every row.
const (
	topPairs  = 30
	topTokens = 15
)

func writePairs(sb *strings.Builder, pairs []PairVolume) {
	sb.WriteString(fmt.Sprintf("## Top %d Pairs\n\n", topPairs))
	if len(pairs) == 0 {
		sb.WriteString("No swaps found.\n\n")
		return
	}
	sb.WriteString("| Token In | Token Out | Swaps | Volume (USD) |\n")
	sb.WriteString("|----------|-----------|-------|--------------|\n")
	for _, p := range head(pairs, topPairs) {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.2f |\n",
			escapeCell(p.TokenIn), escapeCell(p.TokenOut), p.Swaps, p.VolumeUSD))
	}
	sb.WriteString("\n")
}

func writePools(sb *strings.Builder, pools []PoolVolume) {
	sb.WriteString("## Pools\n\n")
	if len(pools) == 0 {
		sb.WriteString("No swaps found.\n\n")
		return
	}
	sb.WriteString("| DEX | Pool | Swaps | Volume (USD) |\n")
	sb.WriteString("|-----|------|-------|--------------|\n")
	for _, p := range pools {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.2f |\n", p.Dex, escapeCell(p.Pool), p.Swaps, p.VolumeUSD))
	}
	sb.WriteString("\n")
}

// writeNetTokens lists the top and bottom tokens by net volume.
func writeNetTokens(sb *strings.Builder, tokens []NetToken) {
	sb.WriteString("## Net Token Volume\n\n")
	if len(tokens) == 0 {
		sb.WriteString("No swaps found.\n\n")
		return
	}
	rows := tokens
	if len(tokens) > 2*topTokens {
		rows = append(head(tokens, topTokens), tokens[len(tokens)-topTokens:]...)
	}
	sb.WriteString("| Token | Net (USD) |\n")
	sb.WriteString("|-------|-----------|\n")
	for _, t := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %.2f |\n", escapeCell(t.Symbol), t.NetUSD))
	}
	sb.WriteString("\n")
}

func writeAbsoluteTokens(sb *strings.Builder, tokens []AbsoluteToken) {
	sb.WriteString(fmt.Sprintf("## Top %d Absolute Token Volume\n\n", topTokens))
	if len(tokens) == 0 {
		sb.WriteString("No swaps found.\n\n")
		return
	}
	sb.WriteString("| Token | DEX | Volume (USD) |\n")
	sb.WriteString("|-------|-----|--------------|\n")
	for _, t := range head(tokens, topTokens) {
		sb.WriteString(fmt.Sprintf("| %s | %s | %.2f |\n", escapeCell(t.Symbol), t.Dex, t.VolumeUSD))
	}
	sb.WriteString("\n")
}

func writeWeekly(sb *strings.Builder, weekly []WeeklyVolume) {
	sb.WriteString("## Weekly Volume\n\n")
	if len(weekly) == 0 {
		sb.WriteString("No swaps found.\n\n")
		return
	}
	sb.WriteString("| Week | Series | Key | Volume (USD) |\n")
	sb.WriteString("|------|--------|-----|--------------|\n")
	for _, w := range weekly {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f |\n",
			w.Week.Format(time.DateOnly), w.Series, escapeCell(w.Key), w.VolumeUSD))
	}
	sb.WriteString("\n")
}

func head[T any](rows []T, n int) []T {
	if len(rows) > n {
		return rows[:n:n]
	}
	return rows
}

// escapeCell keeps token symbols from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
