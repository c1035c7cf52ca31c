// Package main runs the token service HTTP API: mint creation, token
// minting and transfers signed by the service fee payer, plus balance,
// history and verification queries backed by the local ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-token-service/internal/api"
	"solana-token-service/internal/ledger"
	"solana-token-service/internal/orchestrator"
	"solana-token-service/internal/solana"
	"solana-token-service/internal/storage"
	chstore "solana-token-service/internal/storage/clickhouse"
	"solana-token-service/internal/storage/memory"
	"solana-token-service/internal/storage/migrations"
	pgstore "solana-token-service/internal/storage/postgres"
	"solana-token-service/internal/submitter"
	"solana-token-service/internal/token"
)

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, enables push confirmation)")
	privateKey := flag.String("private-key", os.Getenv("SOLANA_PRIVATE_KEY"), "Fee payer private key (base58)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables analytics events)")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")
	commitment := flag.String("commitment", solana.CommitmentConfirmed, "Commitment level for confirmation (confirmed, finalized)")
	confirmTimeout := flag.Duration("confirm-timeout", 60*time.Second, "Transaction confirmation timeout")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *privateKey == "" {
		logger.Fatal("--private-key is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	payer, err := token.KeypairFromBase58(*privateKey)
	if err != nil {
		logger.Fatalf("Invalid --private-key: %v", err)
	}
	logger.Printf("Fee payer: %s", payer.Pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Solana clients
	rpc := solana.NewHTTPClient(*rpcEndpoint, solana.WithCommitment(*commitment))

	var ws submitter.ConfirmationWaiter
	if *wsEndpoint != "" {
		wsClient, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Fatalf("Failed to connect WebSocket %s: %v", *wsEndpoint, err)
		}
		defer wsClient.Close()
		ws = wsClient
		logger.Printf("WebSocket confirmation enabled: %s", *wsEndpoint)
	} else {
		logger.Printf("No --ws-endpoint, falling back to status polling")
	}

	sub := submitter.New(submitter.Options{
		RPC:            rpc,
		WS:             ws,
		Payer:          payer,
		Commitment:     *commitment,
		ConfirmTimeout: *confirmTimeout,
		Logger:         logger,
	})

	rec := ledger.New(stores.mints, stores.transactions, rpc, logger)

	orch := orchestrator.New(orchestrator.Options{
		RPC:       rpc,
		Submitter: sub,
		Ledger:    rec,
		Events:    stores.events,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:         *listenAddr,
		Handler:      api.NewHandler(orch, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Printf("Listening on %s", *listenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
		}
	}()

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
	case <-done:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	go func() {
		select {
		case <-sigCh:
			logger.Println("Second signal, forcing exit")
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
	cancel()
	logger.Println("Shutdown complete")
}

// allStores bundles the stores the service wires together.
type allStores struct {
	mints        storage.MintStore
	transactions storage.TransactionStore
	events       storage.OperationEventStore // nil when analytics is disabled
}

// createStores creates either PostgreSQL-backed or in-memory stores, plus
// an optional ClickHouse event sink when a DSN is configured.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*allStores, func(), error) {
	stores := &allStores{}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if useMemory {
		logger.Println("Using in-memory storage")
		mints := memory.NewMintStore()
		stores.mints = mints
		stores.transactions = memory.NewTransactionStore(mints)
		stores.events = memory.NewOperationEventStore()
	} else {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Println("PostgreSQL migrations applied")
		stores.mints = pgstore.NewMintStore(pool)
		stores.transactions = pgstore.NewTransactionStore(pool)
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { conn.Close() })
		logger.Println("ClickHouse migrations applied")
		stores.events = chstore.NewOperationEventStore(conn)
	}

	return stores, cleanup, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
