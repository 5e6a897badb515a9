// Package main provides a one-shot CLI that extracts the feature map for one
// or more addresses and prints it as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"eth-risk-lab/internal/config"
	"eth-risk-lab/internal/etherscan"
	"eth-risk-lab/internal/features"
	"eth-risk-lab/internal/ingestion"
	"eth-risk-lab/internal/pricing"
	"eth-risk-lab/internal/storage"
	"eth-risk-lab/internal/storage/memory"
)

func main() {
	addresses := flag.String("addresses", "", "Comma-separated addresses to analyze")
	pretty := flag.Bool("pretty", true, "Indent JSON output")
	outPath := flag.String("out", "", "Write reports to this file instead of stdout")
	flag.Parse()

	logger := log.New(os.Stderr, "[extract] ", log.LstdFlags)

	if *addresses == "" {
		logger.Fatal("--addresses is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling", sig)
		cancel()
	}()

	explorer := etherscan.NewHTTPClient(cfg.EtherscanBaseURL, cfg.EtherscanAPIKey,
		etherscan.WithTimeout(cfg.HTTPTimeout),
	)
	fetcher := ingestion.NewFetcher(ingestion.FetcherOptions{
		Client:     explorer,
		MaxRecords: cfg.MaxTransactions,
		Logger:     logger,
	})
	oracle := pricing.NewOracle(pricing.OracleOptions{
		Source: pricing.NewHTTPSource(cfg.PriceBaseURL, cfg.PriceAPIKey, pricing.WithTimeout(cfg.HTTPTimeout)),
		Logger: logger,
	})
	extractor := features.NewExtractor(features.ExtractorOptions{
		History: fetcher,
		Prices:  oracle,
		Logger:  logger,
	})

	dest := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatalf("create output file: %v", err)
		}
		defer f.Close()
		dest = f
	}

	store := memory.NewAddressReportStore()
	if err := runExtractions(ctx, extractor, store, strings.Split(*addresses, ","), *pretty, dest, logger); err != nil {
		logger.Fatal(err)
	}
}

// runExtractions analyzes each address in turn and writes its feature map to
// dest. The report store deduplicates the input list: an address that already
// has a stored report is skipped instead of re-extracted.
func runExtractions(ctx context.Context, extractor *features.Extractor, store storage.AddressReportStore, addresses []string, pretty bool, dest io.Writer, logger *log.Logger) error {
	for _, address := range addresses {
		address = strings.TrimSpace(address)
		if address == "" {
			continue
		}

		if _, err := store.GetLatest(ctx, strings.ToLower(address)); err == nil {
			logger.Printf("skipping %s: already analyzed", address)
			continue
		}

		report, err := extractor.Extract(ctx, address)
		if err != nil {
			return fmt.Errorf("extract %s: %w", address, err)
		}
		if err := store.Insert(ctx, report); err != nil {
			return fmt.Errorf("store report for %s: %w", address, err)
		}

		var out []byte
		if pretty {
			out, err = json.MarshalIndent(report.Features, "", "  ")
		} else {
			out, err = json.Marshal(report.Features)
		}
		if err != nil {
			return fmt.Errorf("marshal features for %s: %w", address, err)
		}

		fmt.Fprintf(dest, "%s\n%s\n", report.Address, out)
	}
	return nil
}
