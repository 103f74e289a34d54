package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gobioeng/halog-ingest/internal/config"
	"github.com/gobioeng/halog-ingest/internal/domain"
	"github.com/gobioeng/halog-ingest/internal/ledger"
	"github.com/gobioeng/halog-ingest/internal/parser"
	"github.com/gobioeng/halog-ingest/internal/registry"
	"github.com/gobioeng/halog-ingest/internal/retry"
	"github.com/gobioeng/halog-ingest/internal/storage"
	"github.com/gobioeng/halog-ingest/internal/validator"
)

// ImportService orchestrates a file import: parse, validate, store, and
// record provenance. One service instance serves many imports; each import
// gets its own store handle and session id.
type ImportService struct {
	cfg      *config.Config
	registry *registry.Registry
	engine   *storage.Engine
	ledger   ledger.Ledger
	reader   *parser.FileReader
	checker  *validator.Validator
	retryCfg retry.Config
	tracer   trace.Tracer
}

// ImportOptions control a single import run.
type ImportOptions struct {
	// Progress receives percent complete and a short message.
	Progress func(percent int, message string)
	// Cancelled is polled between chunks; true stops the import while
	// keeping already stored chunks.
	Cancelled func() bool
	// Force re-imports a file the ledger says is already complete.
	Force bool
}

// ImportResult summarizes a completed (or cancelled) import.
type ImportResult struct {
	SessionID       string
	Filename        string
	RecordsImported int
	Skipped         bool
	Stats           domain.ImportStats
	Quality         domain.QualitySummary
}

// NewImportService wires the import pipeline together.
func NewImportService(cfg *config.Config, reg *registry.Registry, engine *storage.Engine, led ledger.Ledger) (*ImportService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if reg == nil || engine == nil || led == nil {
		return nil, fmt.Errorf("registry, engine and ledger are required")
	}

	vcfg := validator.DefaultConfig()
	vcfg.DuplicateWindow = cfg.DuplicateWindow()
	vcfg.MaxTimestampGap = cfg.MaxTimestampGap()

	return &ImportService{
		cfg:      cfg,
		registry: reg,
		engine:   engine,
		ledger:   led,
		reader:   parser.NewFileReader(reg),
		checker:  validator.New(reg, vcfg),
		retryCfg: retry.DefaultConfig(),
		tracer:   otel.Tracer("halog-ingest/import"),
	}, nil
}

// ImportFile runs the full pipeline for one diagnostic log file. Chunks are
// validated and stored as they are parsed, so a cancelled import keeps
// everything already committed.
func (s *ImportService) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "ImportFile",
		trace.WithAttributes(attribute.String("file.path", path)))
	defer span.End()

	sessionID := uuid.New().String()
	filename := filepath.Base(path)
	result := &ImportResult{SessionID: sessionID, Filename: filename}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}

	pos, err := s.ledger.Get(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Ledger lookup failed, importing anyway")
	} else if pos.Complete(fi.Size()) && !opts.Force {
		log.Info().
			Str("file", filename).
			Uint64("records_imported", pos.RecordsImported).
			Msg("File already imported, skipping")
		result.Skipped = true
		return result, nil
	}

	handle, err := s.engine.NewHandle()
	if err != nil {
		return nil, fmt.Errorf("failed to open store handle: %w", err)
	}
	defer handle.Close()

	s.checker.Reset()

	start := time.Now()
	var (
		inserted     int
		validateTime time.Duration
	)

	parseOpts := parser.ParseOptions{
		ChunkSize: s.cfg.ChunkSize,
		Progress:  opts.Progress,
		Cancelled: opts.Cancelled,
		OnChunk: func(chunkNumber int, records []domain.Record) error {
			vStart := time.Now()
			chunk := s.checker.ValidateChunk(records, chunkNumber)
			s.checker.Fold(chunk)
			validateTime += time.Since(vStart)

			n, err := retry.DoWithResult(ctx, s.retryCfg, func() (int, error) {
				return handle.InsertBatch(ctx, records, s.cfg.CommitInterval)
			})
			inserted += n
			if err != nil {
				return fmt.Errorf("failed to store chunk %d: %w", chunkNumber, err)
			}
			return nil
		},
	}

	set, err := s.reader.ParseFile(ctx, path, parseOpts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	stats := set.Stats
	stats.ValidateTime = validateTime
	elapsed := time.Since(start)
	if elapsed > 0 {
		stats.RecordsPerSec = float64(inserted) / elapsed.Seconds()
	}

	result.RecordsImported = inserted
	result.Stats = stats
	result.Quality = s.checker.Summary()

	if _, err := handle.RecordFileImport(ctx, domain.FileImport{
		Filename:        filename,
		FileSize:        fi.Size(),
		RecordsImported: int64(inserted),
		ImportedAt:      time.Now(),
		ParsingStats:    stats,
	}); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Could not record import metadata")
	}

	if err := handle.RecordValidation(ctx, sessionID, filename, result.Quality); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Could not record validation summary")
	}

	if err := s.ledger.Set(ctx, path, domain.ImportPosition{
		LinesProcessed:  stats.LinesProcessed,
		RecordsImported: uint64(inserted),
		FileSize:        fi.Size(),
		FinishedAt:      time.Now(),
		SessionID:       sessionID,
	}); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Could not update import ledger")
	}

	span.SetAttributes(
		attribute.Int("records.imported", inserted),
		attribute.Float64("quality.score", result.Quality.Score),
	)

	log.Info().
		Str("session_id", sessionID).
		Str("file", filename).
		Int("records", inserted).
		Uint64("lines", stats.LinesProcessed).
		Uint64("parse_errors", stats.ParseErrors).
		Uint64("filtered_unknown", stats.FilteredUnknown).
		Float64("quality_score", result.Quality.Score).
		Str("grade", result.Quality.Grade).
		Dur("elapsed", elapsed).
		Float64("records_per_second", stats.RecordsPerSec).
		Msg("Import finished")

	return result, nil
}

// ImportDirectory imports every regular file in dir, continuing past
// per-file failures. Returns the results of the files that were attempted.
func (s *ImportService) ImportDirectory(ctx context.Context, dir string, opts ImportOptions) ([]*ImportResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var results []*ImportResult
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		res, err := s.ImportFile(ctx, filepath.Join(dir, e.Name()), opts)
		if err != nil {
			log.Error().Err(err).Str("file", e.Name()).Msg("Import failed, continuing with next file")
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

// ValidationSummary reports the quality summary accumulated since the most
// recent import started.
func (s *ImportService) ValidationSummary() domain.QualitySummary {
	return s.checker.Summary()
}

// Close takes a teardown backup of the store and closes the ledger.
func (s *ImportService) Close() error {
	if _, err := s.engine.CreateBackup(); err != nil {
		log.Warn().Err(err).Msg("Teardown backup failed")
	}
	return s.ledger.Close()
}
