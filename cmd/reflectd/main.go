package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"reflectledger/config"
	"reflectledger/core/events"
	"reflectledger/crypto"
	"reflectledger/native/token"
	"reflectledger/observability/logging"
	"reflectledger/rpc"
	"reflectledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("reflectd", cfg.Env)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ledger, err := loadOrCreateLedger(cfg, db)
	if err != nil {
		logger.Error("failed to initialise ledger", "err", err)
		os.Exit(1)
	}

	recorder := events.NewRecorder(events.DefaultRecorderCapacity)
	ledger.SetEmitter(recorder)

	server := rpc.NewServer(ledger, db, recorder, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.RPCAddress)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server stopped", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	// Persist a final snapshot so restarts resume from the latest state even
	// if no mutation landed since the last write.
	blob, err := ledger.Snapshot()
	if err != nil {
		logger.Error("final snapshot encode failed", "err", err)
		return
	}
	if err := db.Put(token.SnapshotKey, blob); err != nil {
		logger.Error("final snapshot persist failed", "err", err)
	}
}

func loadOrCreateLedger(cfg *config.Config, db storage.Database) (*token.Ledger, error) {
	blob, err := db.Get(token.SnapshotKey)
	switch {
	case err == nil:
		return token.RestoreLedger(blob)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, err
	}

	owner, err := cfg.Owner()
	if err != nil {
		return nil, err
	}
	return token.NewLedger(token.Config{
		Name:          cfg.TokenName,
		Symbol:        cfg.TokenSymbol,
		Owner:         owner.Raw(),
		LedgerAddress: crypto.LedgerAddress(cfg.TokenName, cfg.TokenSymbol).Raw(),
	})
}
