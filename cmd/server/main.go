// Package main provides the HTTP analysis service: feature extraction on
// demand, report lookup, Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"eth-risk-lab/internal/config"
	"eth-risk-lab/internal/domain"
	"eth-risk-lab/internal/etherscan"
	"eth-risk-lab/internal/features"
	"eth-risk-lab/internal/ingestion"
	"eth-risk-lab/internal/observability"
	"eth-risk-lab/internal/pricing"
	"eth-risk-lab/internal/storage"
	chstore "eth-risk-lab/internal/storage/clickhouse"
	"eth-risk-lab/internal/storage/memory"
	"eth-risk-lab/internal/storage/migrations"
	pgstore "eth-risk-lab/internal/storage/postgres"
)

// Server wires the extraction pipeline to HTTP handlers.
type Server struct {
	extractor   *features.Extractor
	reportStore storage.AddressReportStore
	logger      *log.Logger
}

func main() {
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	listenAddr := flag.String("listen-addr", "", "HTTP listen address (overrides LISTEN_ADDR)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal("POSTGRES_DSN and CLICKHOUSE_DSN are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		reportStore   storage.AddressReportStore
		transferStore storage.TransferStore
	)
	if *useMemory {
		reportStore = memory.NewAddressReportStore()
		transferStore = memory.NewTransferStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}
		reportStore = pgstore.NewAddressReportStore(pool)

		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			logger.Fatalf("connect clickhouse: %v", err)
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		transferStore = chstore.NewTransferStore(conn)
	}

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
		History: &archivingHistory{fetcher: fetcher, archive: transferStore, logger: logger},
		Prices:  oracle,
		Logger:  logger,
	})

	srv := &Server{
		extractor:   extractor,
		reportStore: reportStore,
		logger:      logger,
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.routes(),
	}

	// Prometheus metrics on a separate listener
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", observability.Handler())
		logger.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server: %v", err)
		}
	}()

	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

// archivingHistory fetches history and archives the merged transactions
// before handing them to the extractor.
type archivingHistory struct {
	fetcher *ingestion.Fetcher
	archive storage.TransferStore
	logger  *log.Logger
}

// FetchHistory implements features.HistorySource.
func (h *archivingHistory) FetchHistory(ctx context.Context, address string) ([]domain.Transaction, error) {
	txs, err := h.fetcher.FetchHistory(ctx, address)
	if err != nil {
		return nil, err
	}
	// Archive failures must not abort extraction.
	if err := h.archive.InsertBulk(ctx, address, time.Now().UnixMilli(), txs); err != nil {
		h.logger.Printf("archive transfers for %s: %v", address, err)
	}
	return txs, nil
}

// routes builds the HTTP route table.
func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/v1/addresses/{address}/features", s.handleAnalyze).Methods(http.MethodPost)
	router.HandleFunc("/v1/addresses/{address}/features", s.handleGetLatest).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return router
}

// addressParam returns the address path variable in canonical lowercase form.
// Reports are keyed by the lowercased address the extractor produces, so a
// checksummed address in the URL must resolve to the same record.
func addressParam(r *http.Request) string {
	return strings.ToLower(mux.Vars(r)["address"])
}

// handleAnalyze runs a fresh extraction for the address and stores the report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	address := addressParam(r)

	report, err := s.extractor.Extract(r.Context(), address)
	if err != nil {
		s.logger.Printf("extract %s: %v", address, err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	if err := s.reportStore.Insert(r.Context(), report); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.logger.Printf("store report for %s: %v", address, err)
		writeError(w, http.StatusInternalServerError, "failed to persist report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleGetLatest returns the most recent stored report for the address.
func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	address := addressParam(r)

	report, err := s.reportStore.GetLatest(r.Context(), address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "address has not been analyzed")
			return
		}
		s.logger.Printf("get latest for %s: %v", address, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
