package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/gobioeng/halog-ingest/internal/backup"
	"github.com/gobioeng/halog-ingest/internal/config"
	"github.com/gobioeng/halog-ingest/internal/ledger"
	"github.com/gobioeng/halog-ingest/internal/observability"
	"github.com/gobioeng/halog-ingest/internal/registry"
	"github.com/gobioeng/halog-ingest/internal/service"
	"github.com/gobioeng/halog-ingest/internal/storage"
)

func main() {
	var (
		dir   = flag.Bool("dir", false, "treat the argument as a directory of log files")
		force = flag.Bool("force", false, "re-import files the ledger marks as complete")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: importer [-dir] [-force] <logfile-or-directory>")
		os.Exit(2)
	}
	target := flag.Arg(0)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("version", "0.1.0").
		Str("target", target).
		Msg("Starting HALog importer")

	// Initialize tracer (if enabled)
	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(observability.TracerConfig{
			ServiceName:    "halog-importer",
			ServiceVersion: "0.1.0",
			Endpoint:       cfg.OTLPEndpoint,
			Protocol:       cfg.OTLPProtocol,
			Enabled:        true,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize tracer")
		} else {
			defer shutdown(context.Background())
		}
	}

	svc, cleanup, err := buildService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build import pipeline")
	}
	defer cleanup()

	// Setup graceful shutdown: the first signal stops between chunks and
	// keeps already stored chunks, a second signal aborts in-flight work.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cancelled atomic.Bool
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go watchSignals(sigChan, &cancelled, cancel)

	opts := service.ImportOptions{
		Progress: func(percent int, message string) {
			log.Debug().Int("percent", percent).Msg(message)
		},
		Cancelled: cancelled.Load,
		Force:     *force,
	}

	if *dir {
		results, err := svc.ImportDirectory(ctx, target, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("Directory import failed")
		}
		for _, r := range results {
			printResult(r)
		}
	} else {
		result, err := svc.ImportFile(ctx, target, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("Import failed")
		}
		printResult(result)
	}
}

// watchSignals trips the cooperative stop flag on the first signal so the
// import finishes its in-flight chunk, and cancels the context only on a
// second signal. Cancelling on the first one would abort the chunk's store
// transaction instead of letting it complete.
func watchSignals(sigs <-chan os.Signal, cancelled *atomic.Bool, cancel context.CancelFunc) {
	<-sigs
	log.Info().Msg("Received shutdown signal, finishing current chunk")
	cancelled.Store(true)

	<-sigs
	log.Warn().Msg("Received second signal, aborting in-flight work")
	cancel()
}

// buildService wires registry, store, ledger and backups into an import
// service. The returned cleanup closes everything in reverse order.
func buildService(cfg *config.Config) (*service.ImportService, func(), error) {
	defs := registry.BuiltinDefinitions()
	if cfg.RegistryOverlayPath != "" {
		overlay, err := registry.LoadOverlay(cfg.RegistryOverlayPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load registry overlay: %w", err)
		}
		if defs, err = overlay.Apply(defs); err != nil {
			return nil, nil, fmt.Errorf("failed to apply registry overlay: %w", err)
		}
	}
	reg, err := registry.Build(defs)
	if err != nil {
		return nil, nil, err
	}

	backups, err := backup.NewManager(cfg.BackupDir, cfg.MaxBackups)
	if err != nil {
		return nil, nil, err
	}

	engine, err := storage.Open(cfg.DatabasePath, backups)
	if err != nil {
		return nil, nil, err
	}

	led, err := ledger.NewBoltDBLedger(cfg.LedgerPath)
	if err != nil {
		return nil, nil, err
	}

	svc, err := service.NewImportService(cfg, reg, engine, led)
	if err != nil {
		led.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}
	return svc, cleanup, nil
}

func printResult(r *service.ImportResult) {
	if r.Skipped {
		log.Info().Str("file", r.Filename).Msg("Skipped (already imported)")
		return
	}
	fmt.Printf("%s: %d records, quality %.1f (%s)\n",
		r.Filename, r.RecordsImported, r.Quality.Score, r.Quality.Grade)
}
