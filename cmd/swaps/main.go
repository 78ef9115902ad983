// Package main fetches the DEX swaps of a wallet set and writes them as a
// Markdown report, CSV or JSON.
//
// Usage:
//
//	swaps -wallets 0xabc,0xdef [-format markdown|csv|json|summary] [-output FILE]
//	swaps 0xabc 0xdef
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"dex-swaps-lab/internal/analyzer"
	"dex-swaps-lab/internal/archive"
	"dex-swaps-lab/internal/config"
	"dex-swaps-lab/internal/domain"
	"dex-swaps-lab/internal/export"
	"dex-swaps-lab/internal/logging"
	"dex-swaps-lab/internal/observability"
	"dex-swaps-lab/internal/report"
)

// Output formats.
const (
	formatMarkdown = "markdown"
	formatCSV      = "csv"
	formatJSON     = "json"
	formatSummary  = "summary"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags use config values as defaults
	wallets := flag.String("wallets", "", "Comma-separated wallet addresses (also accepted as arguments)")
	sources := flag.String("sources", strings.Join(cfg.Sources, ","), "Comma-separated source ids (default: all registered)")
	mode := flag.String("mode", cfg.Mode.String(), "Concurrency mode: parallel or sequential")
	workers := flag.Int("workers", cfg.FetchWorkers, "Maximum concurrent source fetches")
	rowLimit := flag.Int("row-limit", cfg.RowLimit, "Maximum rows requested per source")
	fetchTimeout := flag.Duration("fetch-timeout", cfg.FetchTimeout, "Per-source fetch timeout (0 = none)")
	format := flag.String("format", formatMarkdown, "Output format: markdown, csv, json (rows) or summary (aggregates as JSON)")
	output := flag.String("output", "", "Output file (default: stdout)")
	doArchive := flag.Bool("archive", cfg.PostgresDSN != "" || cfg.ClickHouseDSN != "", "Archive results to the configured stores")
	flag.Parse()

	cfg.Sources = splitList(*sources)
	cfg.FetchWorkers = *workers
	cfg.RowLimit = *rowLimit
	cfg.FetchTimeout = *fetchTimeout
	if cfg.Mode, err = config.ParseMode(*mode); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch *format {
	case formatMarkdown, formatCSV, formatJSON, formatSummary:
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	addresses, err := domain.NormalizeAddresses(append(splitList(*wallets), flag.Args()...))
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("at least one wallet is required (-wallets or arguments)")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	descriptors, err := cfg.SourceDescriptors()
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace, prometheus.NewRegistry())

	a, err := analyzer.New(ctx, analyzer.Options{
		Sources:      descriptors,
		LoadMode:     cfg.Mode,
		FetchMode:    cfg.Mode,
		Workers:      cfg.FetchWorkers,
		RowLimit:     cfg.RowLimit,
		FetchTimeout: cfg.FetchTimeout,
		LoadTimeout:  cfg.LoadTimeout,
		HTTPTimeout:  cfg.HTTPTimeout,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	logger.Info("sources ready", zap.Int("loaded", len(a.Sources())), zap.Int("requested", len(descriptors)))

	table, err := a.GetSwaps(ctx, addresses)
	if err != nil {
		return err
	}

	if *doArchive {
		archiver, cleanup, err := archive.Open(ctx, cfg.PostgresDSN, cfg.ClickHouseDSN, logger, metrics)
		if err != nil {
			return err
		}
		defer cleanup()
		if _, err := archiver.Archive(ctx, table); err != nil {
			logger.Warn("archive incomplete", zap.Error(err))
		}
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := write(w, *format, table, addresses); err != nil {
		return fmt.Errorf("write %s: %w", *format, err)
	}
	if *output != "" {
		logger.Info("output written", zap.String("path", *output), zap.Int("rows", table.Len()))
	}
	return nil
}

func write(w io.Writer, format string, table *domain.Table, wallets []string) error {
	switch format {
	case formatCSV:
		return export.WriteCSV(w, table)
	case formatJSON:
		return export.WriteJSON(w, table)
	case formatSummary:
		return report.WriteJSON(w, report.Summarize(table))
	default:
		_, err := io.WriteString(w, report.RenderMarkdown(report.Summarize(table), wallets, time.Now().UTC()))
		return err
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
