package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/supstonad/be-utbetaling/internal/client"
	"github.com/supstonad/be-utbetaling/internal/config"
	"github.com/supstonad/be-utbetaling/internal/handler"
	"github.com/supstonad/be-utbetaling/internal/repository"
	"github.com/supstonad/be-utbetaling/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Logger()
	if cfg.Service.Environment == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	log.Info().
		Str("environment", cfg.Service.Environment).
		Msg("Starting disbursement service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize NATS connection to the ledger boundary
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.Service.Name),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer nc.Drain()
	log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")

	// Initialize repositories
	chainRepo := repository.NewChainRepository(db)
	runRepo := repository.NewAvstemmingRepository(db)

	// Initialize ledger clients
	simulator := client.NewSimuleringClient(nc, cfg.NATS.SimulationSubject, cfg.NATS.RequestTimeout, log)
	oppdrag := client.NewOppdragPublisher(nc, cfg.NATS.DispatchSubject, cfg.NATS.RequestTimeout, log)
	avstemming := client.NewAvstemmingPublisher(nc, cfg.NATS.ReconcileSubject, log)

	// Initialize services
	disbursements := service.NewDisbursementService(chainRepo, simulator, oppdrag, cfg.Retry, log)
	reconciliation := service.NewReconciliationService(chainRepo, runRepo, avstemming, cfg.Retry, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(disbursements, reconciliation, log)
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/api/v1/batches", httpHandler.CreateBatch)
	mux.HandleFunc("/api/v1/batches/simulate", httpHandler.SimulateBatch)
	mux.HandleFunc("/api/v1/batches/send", httpHandler.SendBatch)
	mux.HandleFunc("/api/v1/batches/kvittering", httpHandler.RecordKvittering)
	mux.HandleFunc("/api/v1/timeline", httpHandler.GetTimeline)
	mux.HandleFunc("/api/v1/avstemming", httpHandler.RunReconciliation)
	mux.HandleFunc("/api/v1/avstemming/runs", httpHandler.ListReconciliationRuns)

	// Apply middleware
	var h http.Handler = mux
	h = handler.RequestID(h)
	h = handler.Logger(log)(h)
	h = handler.Recovery(log)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
