package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carevault/carevault/internal/api"
	"github.com/carevault/carevault/internal/app"
	"github.com/carevault/carevault/internal/config"
	"github.com/carevault/carevault/internal/envelopestore"
	"github.com/carevault/carevault/internal/keywrap"
	"github.com/carevault/carevault/internal/ledger"
	"github.com/carevault/carevault/internal/logger"
	"github.com/carevault/carevault/internal/permission"
	"github.com/carevault/carevault/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	store, err := storage.New(cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	slog.Info("connected to database")

	// Choose the envelope store backend
	var envelopes envelopestore.Store
	switch cfg.EnvelopeStore {
	case config.EnvelopeStorePostgres:
		envelopes = storage.NewEnvelopeRepository(store)
	case config.EnvelopeStoreVault:
		envelopes, err = envelopestore.NewVaultStore(cfg.VaultAddress, cfg.VaultToken, cfg.VaultMount)
		if err != nil {
			slog.Error("failed to initialize vault envelope store", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("unknown envelope store backend", "backend", cfg.EnvelopeStore)
		os.Exit(1)
	}

	slog.Info("initialized envelope store", "backend", cfg.EnvelopeStore)

	// Choose the consent ledger backend
	var consentLedger ledger.ConsentLedger
	switch cfg.LedgerBackend {
	case config.LedgerBackendEthereum:
		ethLedger, err := ledger.NewEthereumLedger(cfg.EthRPCURL, cfg.ConsentContract, cfg.LedgerOperatorKey)
		if err != nil {
			slog.Error("failed to initialize ethereum ledger", "error", err)
			os.Exit(1)
		}
		defer ethLedger.Close()
		consentLedger = ethLedger
	case config.LedgerBackendDev:
		consentLedger = ledger.NewDevLedger()
	default:
		slog.Error("unknown ledger backend", "backend", cfg.LedgerBackend)
		os.Exit(1)
	}

	slog.Info("initialized consent ledger", "backend", cfg.LedgerBackend)

	// Key wrapping for custodial wallets
	wrapper, err := keywrap.New(&keywrap.Config{
		Provider:          cfg.KeywrapProvider,
		LocalMasterKeyHex: cfg.KeywrapLocalMasterKey,
		AWSKMSKeyID:       cfg.KeywrapAWSKeyID,
		AWSKMSRegion:      cfg.KeywrapAWSRegion,
		VaultAddress:      cfg.VaultAddress,
		VaultToken:        cfg.VaultToken,
		VaultTransitKey:   cfg.KeywrapVaultTransitKey,
	})
	if err != nil {
		slog.Error("failed to initialize key wrapper", "error", err)
		os.Exit(1)
	}

	slog.Info("initialized key wrapper", "provider", wrapper.Provider())

	// Application services
	machine := permission.NewMachine(storage.NewPermissionRepository(store), consentLedger)
	consentService := app.NewConsentService(machine)
	recordService := app.NewRecordService(envelopes, consentService)
	profileService := app.NewProfileService(storage.NewWrappedKeyRepository(store), wrapper, envelopes, cfg.SigningTimeout)

	server := api.NewServer(cfg, consentService, recordService, profileService)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slog.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		slog.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("error during shutdown", "error", err)
			slog.Warn("forcing shutdown")
		}
	}
}
